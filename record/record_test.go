package record

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/tbxark/civicdesk/registry"
)

func TestNewRecordMissingAll(t *testing.T) {
	r := New(registry.DeathCertificate)
	missing := Missing(r)
	if len(missing) != 4 {
		t.Fatalf("missing = %d fields, want 4", len(missing))
	}
	if missing[0].Name != "name" || missing[3].Name != "cause_of_death" {
		t.Fatalf("unexpected order: %v", missing)
	}
}

func TestApplyValidDate(t *testing.T) {
	r := New(registry.BirthCertificate)
	next, ok := Apply(r, "date_of_birth", "1990-05-17")
	if !ok {
		t.Fatal("expected date to be accepted")
	}
	if v, _ := next.Get("date_of_birth"); v != "1990-05-17" {
		t.Fatalf("date_of_birth = %v", v)
	}
	if _, ok := r.Get("date_of_birth"); ok {
		t.Fatal("Apply must not mutate the input record")
	}
}

func TestApplyRejectsInvalidDate(t *testing.T) {
	r := New(registry.BirthCertificate)
	next, ok := Apply(r, "date_of_birth", "17th May")
	if ok {
		t.Fatal("expected invalid date to be rejected")
	}
	if len(Missing(next)) != 5 {
		t.Fatalf("rejected write changed the record: %v", next.Values)
	}
}

func TestApplyUnknownField(t *testing.T) {
	r := New(registry.IncomeCertificate)
	if _, ok := Apply(r, "favourite_colour", "blue"); ok {
		t.Fatal("unknown field must be rejected")
	}
}

func TestApplyNumericStripsCommas(t *testing.T) {
	r := New(registry.LandCertificate)
	next, ok := Apply(r, "market_value", "1,25,000")
	if !ok {
		t.Fatal("expected market value to be accepted")
	}
	if v, _ := next.Get("market_value"); v != 125000.0 {
		t.Fatalf("market_value = %#v", v)
	}
}

func TestZeroCountsAsEmpty(t *testing.T) {
	r := New(registry.LandCertificate)
	r.Values["area_sqft"] = 0.0
	found := false
	for _, f := range Missing(r) {
		if f.Name == "area_sqft" {
			found = true
		}
	}
	if found != ZeroIsEmpty {
		t.Fatalf("area_sqft missing = %v, ZeroIsEmpty = %v", found, ZeroIsEmpty)
	}
}

func TestApplyOperationsRejectsForeignPath(t *testing.T) {
	r := New(registry.BirthCertificate)
	_, err := ApplyOperations(r, []Operation{{Op: OperationAdd, Path: "/status", Value: "Approved"}})
	if err == nil {
		t.Fatal("expected path outside the kind to be rejected")
	}
}

func TestApplyOperationsAddOverwrites(t *testing.T) {
	r := New(registry.BirthCertificate)
	r, _ = Apply(r, "full_name", "Asha")
	next, err := ApplyOperations(r, []Operation{{Op: OperationAdd, Path: "/full_name", Value: "Asha Menon"}})
	if err != nil {
		t.Fatalf("ApplyOperations: %v", err)
	}
	if v, _ := next.Get("full_name"); v != "Asha Menon" {
		t.Fatalf("full_name = %v", v)
	}
	if v, _ := r.Get("full_name"); v != "Asha" {
		t.Fatalf("input record mutated: %v", v)
	}
}

func TestApplyOperationsRejectsOtherOps(t *testing.T) {
	r := New(registry.BirthCertificate)
	r, _ = Apply(r, "full_name", "Asha")
	for _, op := range []string{"remove", "replace", "move"} {
		_, err := ApplyOperations(r, []Operation{{Op: op, Path: "/full_name", Value: "x"}})
		if !errors.Is(err, registry.ErrValidation) {
			t.Errorf("%s: err = %v", op, err)
		}
	}
}

func TestPrefill(t *testing.T) {
	r := New(registry.BirthCertificate)
	next, accepted := Prefill(r, map[string]any{
		"full_name":      "Asha Menon",
		"date_of_birth":  "yesterday",
		"place_of_birth": "",
		"unknown":        "x",
		"mothers_name":   "Lakshmi",
	})
	if !reflect.DeepEqual(accepted, []string{"full_name", "mothers_name"}) {
		t.Fatalf("accepted = %v", accepted)
	}
	missing := Missing(next)
	if len(missing) != 3 || missing[0].Name != "date_of_birth" {
		t.Fatalf("missing = %v", missing)
	}
}

func TestSummary(t *testing.T) {
	r := New(registry.IncomeCertificate)
	r, _ = Apply(r, "name", "Ravi")
	r, _ = Apply(r, "annual_income", "250000")
	got := Summary(r)
	want := "Name: Ravi\nAnnual Income: 250000"
	if got != want {
		t.Fatalf("Summary = %q, want %q", got, want)
	}
	if strings.Contains(got, "Address") {
		t.Fatal("Summary must skip empty fields")
	}
}
