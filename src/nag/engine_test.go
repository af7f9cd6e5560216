package nag

import (
	"context"
	"strings"
	"testing"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/config"
	"github.com/sofmeright/imagefreight/src/stack"
)

// noBuckets flags every S3 bucket.
type noBuckets struct{}

func (noBuckets) ID() string          { return "Test-NoBuckets" }
func (noBuckets) Level() Level        { return LevelError }
func (noBuckets) Description() string { return "buckets are not allowed" }
func (noBuckets) Check(_ context.Context, r Resource) (Outcome, error) {
	if r.Type != cfn.TypeS3Bucket {
		return NotApplicable, nil
	}
	return NonCompliant, nil
}

// roleHint warns on every IAM role.
type roleHint struct{}

func (roleHint) ID() string          { return "Test-RoleHint" }
func (roleHint) Level() Level        { return LevelWarning }
func (roleHint) Description() string { return "roles deserve a look" }
func (roleHint) Check(_ context.Context, r Resource) (Outcome, error) {
	if r.Type != cfn.TypeIAMRole {
		return NotApplicable, nil
	}
	return NonCompliant, nil
}

func init() {
	Register("Test-NoBuckets", func() Rule { return noBuckets{} })
	Register("Test-RoleHint", func() Rule { return roleHint{} })
}

func testStacks(t *testing.T) []*stack.Stack {
	t.Helper()
	app := stack.NewApp()
	st, err := app.NewStack("Store", "store", stack.Env{})
	if err != nil {
		t.Fatal(err)
	}
	bucket := &cfn.Resource{Type: cfn.TypeS3Bucket}
	AddResourceSuppressions(bucket, Suppression{ID: "Test-NoBuckets", Reason: "the only bucket we need"})
	short := &cfn.Resource{Type: cfn.TypeS3Bucket}
	AddResourceSuppressions(short, Suppression{ID: "Test-NoBuckets", Reason: "meh"})
	for id, r := range map[string]*cfn.Resource{
		"rBucket": bucket,
		"rShort":  short,
		"rRole":   {Type: cfn.TypeIAMRole},
	} {
		if _, err := st.Add(id, r); err != nil {
			t.Fatal(err)
		}
	}
	return []*stack.Stack{st}
}

func TestEngineRun(t *testing.T) {
	e, err := NewEngine(config.NagConfig{MinReasonLength: 10}, false)
	if err != nil {
		t.Fatal(err)
	}
	findings, err := e.Run(context.Background(), testStacks(t))
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, f := range findings {
		line := f.LogicalID + " " + f.RuleID
		if f.Suppressed {
			line += " suppressed"
		}
		got = append(got, line)
	}
	want := []string{
		"rBucket Test-NoBuckets suppressed",
		"rRole Test-RoleHint",
		"rShort ImageFreight-Suppression",
		"rShort Test-NoBuckets",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("findings:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}

	s := Summarize(findings)
	if s.Errors != 2 || s.Warnings != 1 || s.Suppressed != 1 {
		t.Errorf("summary = %+v", s)
	}
	if findings[0].Reason != "the only bucket we need" || findings[0].Path != "/Store/rBucket" {
		t.Errorf("suppressed finding = %+v", findings[0])
	}
}

func TestEngineDisabled(t *testing.T) {
	e, err := NewEngine(config.NagConfig{Disabled: []string{"Test-RoleHint"}, MinReasonLength: 10}, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range e.Rules {
		if r.ID() == "Test-RoleHint" {
			t.Fatal("disabled rule selected")
		}
	}

	_, err = NewEngine(config.NagConfig{Disabled: All()}, false)
	if err == nil {
		t.Error("expected an error with every rule disabled")
	}
}

func TestSuppressionsRoundTrip(t *testing.T) {
	r := &cfn.Resource{Type: cfn.TypeS3Bucket}
	AddResourceSuppressions(r, Suppression{ID: "A", Reason: "first reason"})
	AddResourceSuppressions(r, Suppression{ID: "B", Reason: "second reason"})

	got := Suppressions(r)
	if len(got) != 2 || got[0].ID != "A" || got[1].Reason != "second reason" {
		t.Errorf("Suppressions = %+v", got)
	}
	if Suppressions(&cfn.Resource{}) != nil {
		t.Error("resource without metadata has suppressions")
	}
}
