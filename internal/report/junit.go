package report

import (
	"encoding/xml"
	"fmt"
	"os"
	"sync"
	"time"
)

// JUnit accumulates step results and writes a JUnit-compatible XML file on
// finalization, one <testcase> per step with a <failure> element for failed
// steps. CI systems consume this directly.
type JUnit struct {
	path  string
	runID string

	mu    sync.Mutex
	cases []junitTestCase
	start time.Time
}

type junitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Time       string          `xml:"time,attr"`
	Properties junitProperties `xml:"properties"`
	TestCases  []junitTestCase `xml:"testcase"`
}

type junitProperties struct {
	Property []junitProperty `xml:"property"`
}

type junitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Content string `xml:",chardata"`
}

// NewJUnit creates a JUnit reporter that writes to path on Finalize.
func NewJUnit(path, runID string) *JUnit {
	return &JUnit{
		path:  path,
		runID: runID,
		start: time.Now(),
	}
}

// Record buffers one test case.
func (j *JUnit) Record(result Result) {
	j.mu.Lock()
	defer j.mu.Unlock()

	testCase := junitTestCase{
		Name:      result.Name,
		Classname: result.File,
		Time:      fmt.Sprintf("%.3f", result.Latency.Seconds()),
	}
	if !result.Success {
		testCase.Failure = &junitFailure{
			Message: result.Err,
			Content: result.Err,
		}
	}

	j.cases = append(j.cases, testCase)
}

// Finalize writes the accumulated test cases as a JUnit XML document.
func (j *JUnit) Finalize() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	failures := 0
	for _, testCase := range j.cases {
		if testCase.Failure != nil {
			failures++
		}
	}

	testSuite := junitTestSuite{
		Name:     "apiprobe",
		Tests:    len(j.cases),
		Failures: failures,
		Time:     fmt.Sprintf("%.3f", time.Since(j.start).Seconds()),
		Properties: junitProperties{
			Property: []junitProperty{
				{Name: "run_id", Value: j.runID},
			},
		},
		TestCases: j.cases,
	}

	data, err := xml.MarshalIndent(testSuite, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JUnit report: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	output = append(output, '\n')

	if err := os.WriteFile(j.path, output, 0644); err != nil {
		return fmt.Errorf("failed to write JUnit report to %s: %w", j.path, err)
	}

	return nil
}
