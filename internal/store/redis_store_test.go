package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"platewatch/internal/record"
)

func strptr(s string) *string { return &s }

func TestGateMembershipIgnoresPhoneFormatting(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisStore(redis.Addr(), "")
	ctx := context.Background()

	if err := s.AddUser(ctx, "+380 67 123 4567"); err != nil {
		t.Fatalf("add user: %v", err)
	}
	if !redis.Exists("USER:380671234567") {
		t.Fatalf("expected key USER:380671234567")
	}
	ok, err := s.IsUser(ctx, "380671234567")
	if err != nil {
		t.Fatalf("is user: %v", err)
	}
	if !ok {
		t.Fatalf("digit-only lookup should match formatted add")
	}
	ok, err = s.IsUser(ctx, "(380) 67-123-45-67")
	if err != nil {
		t.Fatalf("is user: %v", err)
	}
	if !ok {
		t.Fatalf("formatted lookup should match")
	}

	if err := s.RemoveUser(ctx, "380671234567"); err != nil {
		t.Fatalf("remove user: %v", err)
	}
	ok, err = s.IsUser(ctx, "380671234567")
	if err != nil {
		t.Fatalf("is user after remove: %v", err)
	}
	if ok {
		t.Fatalf("user should be gone after remove")
	}
}

func TestGateAdminSetIsDisjoint(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisStore(redis.Addr(), "")
	ctx := context.Background()

	if err := s.AddAdmin(ctx, "380991112233"); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	admin, err := s.IsAdmin(ctx, "380991112233")
	if err != nil {
		t.Fatalf("is admin: %v", err)
	}
	if !admin {
		t.Fatalf("expected admin membership")
	}
	user, err := s.IsUser(ctx, "380991112233")
	if err != nil {
		t.Fatalf("is user: %v", err)
	}
	if user {
		t.Fatalf("admin set must not imply user set")
	}
	if err := s.RemoveAdmin(ctx, "380991112233"); err != nil {
		t.Fatalf("remove admin: %v", err)
	}
	if redis.Exists("ADMIN:380991112233") {
		t.Fatalf("admin key should be deleted")
	}
}

func TestRecordsPutGet(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisStore(redis.Addr(), "")
	ctx := context.Background()

	rec := record.Record{
		Brand:          strptr("Renault Trafic"),
		Color:          strptr("Белый"),
		ReportedInCity: strptr("Херсон"),
	}
	if err := s.PutRecord(ctx, "BT5527CM", rec); err != nil {
		t.Fatalf("put record: %v", err)
	}
	if !redis.Exists("CAR:BT5527CM") {
		t.Fatalf("expected key CAR:BT5527CM")
	}

	got, found, err := s.GetRecord(ctx, "BT5527CM")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if !found {
		t.Fatalf("expected record to be found")
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("record = %+v, want %+v", got, rec)
	}
}

func TestRecordsMissingIsNotAnError(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisStore(redis.Addr(), "")

	_, found, err := s.GetRecord(context.Background(), "XX0000XX")
	if err != nil {
		t.Fatalf("get missing record: %v", err)
	}
	if found {
		t.Fatalf("missing record reported as found")
	}
}

func TestRecordsOverwrite(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisStore(redis.Addr(), "")
	ctx := context.Background()

	if err := s.PutRecord(ctx, "AA1111BB", record.Record{Brand: strptr("Нива")}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := s.PutRecord(ctx, "AA1111BB", record.Record{Brand: strptr("УАЗ")}); err != nil {
		t.Fatalf("second put: %v", err)
	}
	got, _, err := s.GetRecord(ctx, "AA1111BB")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Brand == nil || *got.Brand != "УАЗ" {
		t.Fatalf("brand = %v, want overwritten value", got.Brand)
	}
}

func TestSessionsDefaultToStart(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisStore(redis.Addr(), "")
	ctx := context.Background()

	sess, err := s.LoadSession(ctx, 42)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if sess.State != StateStart {
		t.Fatalf("state = %q, want start", sess.State)
	}

	want := Session{State: StateAwaitingRequests, PhoneNumber: "380671234567"}
	if err := s.SaveSession(ctx, 42, want); err != nil {
		t.Fatalf("save session: %v", err)
	}
	got, err := s.LoadSession(ctx, 42)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if got != want {
		t.Fatalf("session = %+v, want %+v", got, want)
	}
	if !redis.Exists("SESSION:42") {
		t.Fatalf("expected key SESSION:42")
	}
}

func TestDigitsOnly(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+380 67 123 4567", "380671234567"},
		{"(099) 111-22-33", "0991112233"},
		{"380671234567", "380671234567"},
		{"no digits", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := DigitsOnly(tc.in); got != tc.want {
			t.Fatalf("DigitsOnly(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
