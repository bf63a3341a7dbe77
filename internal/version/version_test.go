package version

import "testing"

func TestCurrent(t *testing.T) {
	info := Current()
	if info.Version != Version || info.GitSHA != GitSHA || info.BuildTime != BuildTime {
		t.Errorf("Current() = %+v does not match package vars", info)
	}
	if got := (Info{Version: "1.2.0", GitSHA: "abc123", BuildTime: "2025-01-01"}).String(); got != "1.2.0 (abc123, built 2025-01-01)" {
		t.Errorf("String() = %q", got)
	}
}
