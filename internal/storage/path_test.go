package storage

import "testing"

func TestParseLocationLocalPath(t *testing.T) {
	loc, err := ParseLocation(" data/defects.parquet ")
	if err != nil {
		t.Fatalf("ParseLocation() error = %v", err)
	}
	if loc.Remote || loc.Path != "data/defects.parquet" {
		t.Fatalf("ParseLocation() = %+v", loc)
	}
}

func TestParseLocationObjectKey(t *testing.T) {
	loc, err := ParseLocation("s3:///fixtures/./defects.parquet")
	if err != nil {
		t.Fatalf("ParseLocation() error = %v", err)
	}
	if !loc.Remote || loc.Key != "fixtures/defects.parquet" {
		t.Fatalf("ParseLocation() = %+v", loc)
	}
	if loc.String() != "s3://fixtures/defects.parquet" {
		t.Fatalf("String() = %q", loc.String())
	}
}

func TestParseLocationRejectsTraversalAndEmpty(t *testing.T) {
	for _, raw := range []string{"", "s3://", "s3://../secrets", "s3://a/../../b"} {
		if _, err := ParseLocation(raw); err == nil {
			t.Fatalf("ParseLocation(%q) expected error", raw)
		}
	}
}
