package prompt

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBuild_AppendsAllFlags(t *testing.T) {
	got := Build("a cat", Parameters{StyleReference: RandomStyle(), AspectRatio: "16:9", StyleStrength: 1000})
	want := "a cat --sref random --ar 16:9 --s 1000"
	if got != want {
		t.Fatalf("Build = %q, want %q", got, want)
	}
}

func TestBuild_StripsPreviouslyAppendedFlags(t *testing.T) {
	ref, err := FixedStyle(42)
	if err != nil {
		t.Fatalf("FixedStyle: %v", err)
	}
	got := Build("  a cat --sref random --ar 1:1   --s 5 ", Parameters{StyleReference: ref, AspectRatio: "4:3", StyleStrength: 250})
	want := "a cat --sref 42 --ar 4:3 --s 250"
	if got != want {
		t.Fatalf("Build = %q, want %q", got, want)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	ref, _ := FixedStyle(17)
	params := Parameters{StyleReference: ref, AspectRatio: "9:16", StyleStrength: 0}
	base, got := Parse(Build("misty harbor at dawn", params))
	if base != "misty harbor at dawn" {
		t.Fatalf("base = %q, want %q", base, "misty harbor at dawn")
	}
	if got != params {
		t.Fatalf("params = %#v, want %#v", got, params)
	}
}

func TestParse_BadFlagsFallBackToDefaults(t *testing.T) {
	_, got := Parse("x --sref -3 --ar 7:5 --s 9000")
	if got != Defaults() {
		t.Fatalf("params = %#v, want defaults %#v", got, Defaults())
	}
}

func TestStyleReference_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"random string", `"random"`, "random"},
		{"number", `42`, "42"},
		{"numeric string", `"7"`, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ref StyleReference
			if err := json.Unmarshal([]byte(tt.in), &ref); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.in, err)
			}
			if ref.String() != tt.want {
				t.Fatalf("String() = %q, want %q", ref.String(), tt.want)
			}
		})
	}

	var ref StyleReference
	if err := json.Unmarshal([]byte(`0`), &ref); err == nil {
		t.Fatalf("Unmarshal(0) returned nil error, want error")
	}

	fixed, _ := FixedStyle(9)
	out, err := json.Marshal(Parameters{StyleReference: fixed, AspectRatio: "1:1", StyleStrength: 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"sref":9,"ar":"1:1","s":3}` {
		t.Fatalf("Marshal = %s", out)
	}
}

func TestValidateAndNormalize(t *testing.T) {
	bad := Parameters{AspectRatio: "2:1", StyleStrength: 1001}
	err := bad.Validate()
	if err == nil {
		t.Fatalf("Validate returned nil error, want error")
	}
	if !strings.Contains(err.Error(), "AspectRatio") || !strings.Contains(err.Error(), "StyleStrength") {
		t.Fatalf("Validate error = %q, want both fields named", err.Error())
	}
	if got := bad.Normalize(); got != Defaults() {
		t.Fatalf("Normalize = %#v, want %#v", got, Defaults())
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults().Validate() = %v, want nil", err)
	}
}

func TestValidate_AspectRatios(t *testing.T) {
	for _, ratio := range AspectRatios {
		p := Defaults()
		p.AspectRatio = ratio
		if err := p.Validate(); err != nil {
			t.Fatalf("Validate(%q) = %v, want nil", ratio, err)
		}
		if got := p.Normalize().AspectRatio; got != ratio {
			t.Fatalf("Normalize(%q).AspectRatio = %q, want unchanged", ratio, got)
		}
	}

	p := Defaults()
	p.AspectRatio = "7:5"
	err := p.Validate()
	if err == nil || !strings.Contains(err.Error(), "aspect_ratio") {
		t.Fatalf("Validate(7:5) = %v, want aspect_ratio failure", err)
	}
	if got := p.Normalize().AspectRatio; got != Defaults().AspectRatio {
		t.Fatalf("Normalize(7:5).AspectRatio = %q, want %q", got, Defaults().AspectRatio)
	}
}

func TestParameterControls(t *testing.T) {
	p := Defaults()
	if got := p.NextAspectRatio().AspectRatio; got != "4:3" {
		t.Fatalf("NextAspectRatio = %q, want 4:3", got)
	}
	p.AspectRatio = "3:2"
	if got := p.NextAspectRatio().AspectRatio; got != "1:1" {
		t.Fatalf("NextAspectRatio wrap = %q, want 1:1", got)
	}
	if got := p.AdjustStrength(50).StyleStrength; got != MaxStyleStrength {
		t.Fatalf("AdjustStrength clamp = %d, want %d", got, MaxStyleStrength)
	}
	p.StyleStrength = 20
	if got := p.AdjustStrength(-50).StyleStrength; got != MinStyleStrength {
		t.Fatalf("AdjustStrength clamp = %d, want %d", got, MinStyleStrength)
	}
}
