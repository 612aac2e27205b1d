// SPDX-License-Identifier: MPL-2.0

package script

import (
	"errors"
	"strings"
	"testing"
)

func TestScriptValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{name: "simple command", source: "apt-get update"},
		{name: "multi-line sequence", source: "cd /tmp\nwget -c http://example.com/a.tar.gz\ntar xf a.tar.gz"},
		{name: "conditionals and pipes", source: `if dpkg -s wget >/dev/null 2>&1; then echo ok; fi | cat`},
		{name: "empty", source: "", wantErr: true},
		{name: "whitespace only", source: "  \n\t", wantErr: true},
		{name: "unterminated quote", source: `echo "unterminated`, wantErr: true},
		{name: "dangling pipe", source: "ls |", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := Script{Name: "test", Source: tt.source}
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResultSuccess(t *testing.T) {
	t.Parallel()

	if !NewExitCodeResult(0).Success() {
		t.Error("exit 0 should be success")
	}
	if NewExitCodeResult(2).Success() {
		t.Error("exit 2 should not be success")
	}
	if NewErrorResult(1, errors.New("spawn failed")).Success() {
		t.Error("infrastructure failure should not be success")
	}
}

func TestResultAsError(t *testing.T) {
	t.Parallel()

	if err := NewExitCodeResult(0).AsError("build-aom"); err != nil {
		t.Errorf("AsError() on success = %v, want nil", err)
	}

	err := NewExitCodeResult(2).AsError("build-aom")
	if err == nil {
		t.Fatal("AsError() on failure = nil, want error")
	}
	if !strings.Contains(err.Error(), "build-aom") {
		t.Errorf("AsError() = %q, missing script name", err)
	}
	if !strings.Contains(err.Error(), "2") {
		t.Errorf("AsError() = %q, missing exit code", err)
	}
}
