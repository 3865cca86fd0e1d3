package identity

import "testing"

func TestCallerCanAct(t *testing.T) {
	owner := Caller{UserID: "u1"}
	if !owner.CanAct("u1") {
		t.Fatal("owner must be able to act on own resources")
	}
	if owner.CanAct("u2") {
		t.Fatal("non-owner must not act on another user's resources")
	}

	admin := Caller{UserID: "admin", Admin: true}
	if !admin.CanAct("u2") {
		t.Fatal("admin must be able to act on any resources")
	}

	anonymous := Caller{}
	if anonymous.CanAct("") {
		t.Fatal("anonymous caller must not match an empty owner")
	}
}
