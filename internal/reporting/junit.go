package reporting

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/spboyer/faeval/internal/models"
	"github.com/spf13/afero"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one evaluation run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one case.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents an incorrect prediction.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents ground truth that could not be read.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a case as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

const junitClassname = "faeval"

// ConvertToJUnit converts an EvaluationReport to JUnit XML format. A case
// passes only when both agent and step are correct.
func ConvertToJUnit(report *models.EvaluationReport) *JUnitTestSuites {
	s := report.Summary
	suite := JUnitTestSuite{
		Name:      report.EvalFile,
		Timestamp: report.Timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "data_path", Value: report.DataPath},
			{Name: "match_mode", Value: report.MatchMode},
			{Name: "total_references", Value: fmt.Sprintf("%d", s.TotalReferences)},
			{Name: "agent_accuracy", Value: fmt.Sprintf("%.2f", s.AgentAccuracy)},
			{Name: "step_accuracy", Value: fmt.Sprintf("%.2f", s.StepAccuracy)},
		},
	}

	for i := range report.Cases {
		tc := convertCase(&report.Cases[i])
		switch {
		case tc.Failure != nil:
			suite.Failures++
		case tc.Error != nil:
			suite.Errors++
		case tc.Skipped != nil:
			suite.Skipped++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}
	suite.Tests = len(suite.TestCases)

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Errors:     suite.Errors,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertCase(c *models.CaseResult) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      c.CaseID,
		Classname: junitClassname,
	}

	switch c.Status {
	case models.StatusScored:
		if !c.AgentCorrect || !c.StepCorrect {
			tc.Failure = buildFailure(c)
		}
	case models.StatusNoPrediction:
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s: no prediction", c.CaseID),
			Type:    "MissingPrediction",
		}
	case models.StatusSkipped:
		tc.Error = &JUnitError{
			Message: c.Error,
			Type:    "GroundTruthError",
		}
	case models.StatusMissingReference:
		tc.Skipped = &JUnitSkipped{Message: "no reference file for prediction"}
	}

	return tc
}

func buildFailure(c *models.CaseResult) *JUnitFailure {
	var body string
	if !c.AgentCorrect {
		body += fmt.Sprintf("[FAIL] agent: predicted %q, actual %q\n", c.PredictedAgent, c.ActualAgent)
	}
	if !c.StepCorrect {
		body += fmt.Sprintf("[FAIL] step: predicted %q, actual %q\n", c.PredictedStep, c.ActualStep)
	}
	return &JUnitFailure{
		Message: fmt.Sprintf("%s: agent_correct=%t step_correct=%t", c.CaseID, c.AgentCorrect, c.StepCorrect),
		Type:    "IncorrectPrediction",
		Body:    body,
	}
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(fs afero.Fs, report *models.EvaluationReport, path string) error {
	suites := ConvertToJUnit(report)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return afero.WriteFile(fs, path, output, 0644)
}
