package pgid

import "testing"

func TestParse(t *testing.T) {
	if _, ok := Parse("not-a-uuid"); ok {
		t.Fatalf("expected malformed id to be rejected")
	}
	if _, ok := Parse(""); ok {
		t.Fatalf("expected empty id to be rejected")
	}
	u, ok := Parse("6F9619FF-8B86-D011-B42D-00C04FC964FF")
	if !ok || u.String() != "6f9619ff-8b86-d011-b42d-00c04fc964ff" {
		t.Fatalf("expected canonical uuid, got %s ok=%v", u, ok)
	}
}

func TestParseAll(t *testing.T) {
	got := ParseAll([]string{"6f9619ff-8b86-d011-b42d-00c04fc964ff", "x", "' OR 1=1 --"})
	if len(got) != 1 {
		t.Fatalf("expected one valid id, got %v", got)
	}
}
