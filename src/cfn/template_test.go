package cfn

import (
	"errors"
	"sort"
	"strings"
	"testing"
)

func TestAddResourceRejectsDuplicatesAndBadIDs(t *testing.T) {
	tmpl := New("test")

	if err := tmpl.AddResource("rBucket", &Resource{Type: TypeS3Bucket}); err != nil {
		t.Fatalf("AddResource: %v", err)
	}
	err := tmpl.AddResource("rBucket", &Resource{Type: TypeS3Bucket})
	if !errors.Is(err, ErrDuplicateLogicalID) {
		t.Fatalf("expected ErrDuplicateLogicalID, got %v", err)
	}

	// Parameters share the Ref namespace with resources.
	err = tmpl.AddParameter("rBucket", &Parameter{Type: ParamString})
	if !errors.Is(err, ErrDuplicateLogicalID) {
		t.Fatalf("expected parameter collision, got %v", err)
	}

	if err := tmpl.AddResource("bad-id", &Resource{Type: TypeS3Bucket}); err == nil {
		t.Fatal("expected error for non-alphanumeric id")
	}
}

func TestReferences(t *testing.T) {
	v := map[string]any{
		"Bucket": Ref("rBucket"),
		"Uri":    Join("", "s3://", Ref("BucketParam"), "/x"),
		"Components": []any{
			map[string]any{"ComponentArn": GetAtt("rComponentA", "Arn")},
		},
	}
	got := References(v)
	sort.Strings(got)
	want := []string{"BucketParam", "rBucket", "rComponentA"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("References = %v, want %v", got, want)
	}
}

func TestMarshalRoundTripJSON(t *testing.T) {
	tmpl := New("desc")
	r := &Resource{Type: TypeIBPipeline, Properties: map[string]any{"Name": "p"}}
	r.AddDependency("rInfra")
	r.AddDependency("rInfra")
	if err := tmpl.AddResource("rPipeline", r); err != nil {
		t.Fatal(err)
	}

	data, err := tmpl.Marshal(FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	got := back.Resources["rPipeline"]
	if got == nil || got.Type != TypeIBPipeline {
		t.Fatalf("pipeline lost in round trip: %+v", back.Resources)
	}
	if len(got.DependsOn) != 1 || got.DependsOn[0] != "rInfra" {
		t.Fatalf("DependsOn = %v, want [rInfra]", got.DependsOn)
	}
}

func TestMarshalYAML(t *testing.T) {
	tmpl := New("desc")
	if err := tmpl.AddResource("rBucket", &Resource{Type: TypeS3Bucket}); err != nil {
		t.Fatal(err)
	}
	data, err := tmpl.Marshal(FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Type: AWS::S3::Bucket") {
		t.Fatalf("yaml output missing resource type:\n%s", data)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "json": FormatJSON, "yaml": FormatYAML, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}
