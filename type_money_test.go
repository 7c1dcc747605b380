package advisory

import (
	"encoding/json"
	"testing"
)

func TestMoney_String(t *testing.T) {
	testCases := []struct {
		m    Money
		want string
	}{
		{USD(5000), "$5,000.00"},
		{USD(-500), "-$500.00"},
		{USD(1234.567), "$1,234.57"},
		{M(12, ""), "12"},
	}
	for _, tc := range testCases {
		if got := tc.m.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestMoney_JSON(t *testing.T) {
	var m Money
	for _, s := range []string{`1500`, `"1500"`, `1500.00`} {
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			t.Fatalf("json.Unmarshal(%s) error = %v", s, err)
		}
		if !m.Equal(M(1500, "")) {
			t.Errorf("json.Unmarshal(%s) = %v, want 1500", s, m)
		}
	}
	if err := json.Unmarshal([]byte(`"lots"`), &m); err == nil {
		t.Errorf("json.Unmarshal(\"lots\") succeeded")
	}
	b, err := json.Marshal(USD(2500))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "2500" {
		t.Errorf("json.Marshal() = %s, want 2500", b)
	}
}

func TestMoney_Round(t *testing.T) {
	if got := USD(2500.5).Round(); !got.Equal(USD(2501)) {
		t.Errorf("Round() = %v, want $2,501.00", got)
	}
}
