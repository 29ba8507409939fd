package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEncodeWritesReservedFieldsInWireFormat(t *testing.T) {
	exp := time.Date(2026, 5, 4, 3, 2, 1, 987654321, time.UTC)
	p := NewWithExpiry(exp)
	p.SetUser(&User{ID: "u1", Email: "a@b.c", UpdatedAt: exp})

	data, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"_expiry":"2026-05-04T03:02:01.987Z"`) {
		t.Fatalf("expiry not in millisecond ISO form: %s", got)
	}
	if !strings.Contains(got, `"_id":"u1"`) || !strings.Contains(got, `"updatedAt":"2026-05-04T03:02:01.987Z"`) {
		t.Fatalf("user projection not encoded as expected: %s", got)
	}
}

func TestDecodeAcceptsEpochMillisExpiry(t *testing.T) {
	p, err := Decode([]byte(`{"_expiry":1767225600000}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	exp, ok := p.Expiry()
	if !ok {
		t.Fatal("expected expiry to be set")
	}
	if !exp.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected expiry %v", exp)
	}
}

func TestDecodeMalformedReservedFields(t *testing.T) {
	p, err := Decode([]byte(`{"_expiry":"yesterday","user":"nobody","theme":"dark"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := p.Expiry(); ok {
		t.Fatal("malformed expiry should be dropped")
	}
	if p.User() != nil || p.Authenticated() {
		t.Fatal("malformed user must not become a projection")
	}
	out, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(out), `"user":"nobody"`) {
		t.Fatalf("malformed user value not carried through: %s", out)
	}
	if v, ok := p.Get("theme"); !ok || v != "dark" {
		t.Fatalf("extension value lost: %v %v", v, ok)
	}

	p, err = Decode([]byte(`{"user":{"firstName":"no id"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Authenticated() {
		t.Fatal("user without id must not authenticate the session")
	}
	out, err = Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(out) != `{"user":{"firstName":"no id"}}` {
		t.Fatalf("user without id not carried through: %s", out)
	}
}

func TestDecodeKeepsUnknownUserFields(t *testing.T) {
	in := `{"_expiry":"2026-01-01T00:00:00.000Z","user":{"_id":"u1","email":"a@b.c","phone":"555","role":"admin","updatedAt":"soon"}}`
	p, err := Decode([]byte(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u := p.User(); u == nil || u.ID != "u1" || u.Email != "a@b.c" {
		t.Fatalf("projection not decoded: %+v", u)
	}
	out, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(out) != in {
		t.Fatalf("record changed on round trip:\n in  %s\n out %s", in, out)
	}

	u := p.User()
	u.FirstName = "Ada"
	p.SetUser(u)
	out, _ = Encode(p)
	if !strings.Contains(string(out), `"role":"admin"`) || !strings.Contains(string(out), `"firstName":"Ada"`) {
		t.Fatalf("same-user update lost fields: %s", out)
	}

	p.SetUser(&User{ID: "u2"})
	out, _ = Encode(p)
	if strings.Contains(string(out), "role") {
		t.Fatalf("fields of the previous user leaked: %s", out)
	}
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	for _, blob := range []string{"", "x", "[]", "null", "42", `{"a":1}{"b":2}`} {
		if _, err := Decode([]byte(blob)); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("blob %q: expected ErrCorrupt, got %v", blob, err)
		}
	}
}

func TestDecodePreservesLargeIntegers(t *testing.T) {
	in := `{"n":9007199254740993}`
	p, err := Decode([]byte(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(out) != in {
		t.Fatalf("expected %s, got %s", in, out)
	}
}

func TestPayloadRejectsReservedKeys(t *testing.T) {
	p := New()
	if err := p.Set(ExpiryKey, "x"); !errors.Is(err, ErrReservedKey) {
		t.Fatalf("expected ErrReservedKey for %s, got %v", ExpiryKey, err)
	}
	if err := p.Set(UserKey, "x"); !errors.Is(err, ErrReservedKey) {
		t.Fatalf("expected ErrReservedKey for %s, got %v", UserKey, err)
	}
}

func TestEncodeFailsOnUnserializableValue(t *testing.T) {
	p := New()
	if err := p.Set("ch", make(chan int)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := Encode(p); err == nil {
		t.Fatal("expected encode error for channel value")
	}
}

func TestUserAccessorReturnsCopy(t *testing.T) {
	p := New()
	p.SetUser(&User{ID: "u1", FirstName: "A"})
	u := p.User()
	u.FirstName = "B"
	if p.User().FirstName != "A" {
		t.Fatal("mutating the returned user must not change the payload")
	}
}
