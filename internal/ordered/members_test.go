package ordered

import "testing"

func TestMembersKeepsDocumentOrder(t *testing.T) {
	members, err := Members([]byte(`{"zeta":1,"alpha":{"b":2},"mid":"x","alpha":3}`))
	if err != nil {
		t.Fatalf("Members() error: %v", err)
	}

	want := []string{"zeta", "alpha", "mid", "alpha"}
	if len(members) != len(want) {
		t.Fatalf("unexpected member count: got=%d want=%d", len(members), len(want))
	}
	for idx, key := range want {
		if members[idx].Key != key {
			t.Fatalf("member[%d]=%q want=%q", idx, members[idx].Key, key)
		}
	}
	if string(members[1].Raw) != `{"b":2}` {
		t.Fatalf("unexpected nested raw: %s", members[1].Raw)
	}
}

func TestMembersRejectsNonObject(t *testing.T) {
	for _, payload := range []string{`[1,2]`, `"text"`, ``, `{"a":1} {"b":2}`, `{"a":`} {
		if _, err := Members([]byte(payload)); err == nil {
			t.Fatalf("expected error for %q", payload)
		}
	}
}

func TestIsObjectAndFind(t *testing.T) {
	if !IsObject([]byte("  \n{}")) {
		t.Fatalf("expected object detection")
	}
	if IsObject([]byte(`"x"`)) {
		t.Fatalf("string detected as object")
	}

	members, err := Members([]byte(`{"a":1,"b":2}`))
	if err != nil {
		t.Fatalf("Members() error: %v", err)
	}
	raw, ok := Find(members, "b")
	if !ok || string(raw) != "2" {
		t.Fatalf("Find(b)=%s,%v", raw, ok)
	}
	if _, ok := Find(members, "c"); ok {
		t.Fatalf("Find(c) unexpectedly found")
	}
}
