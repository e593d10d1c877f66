// SPDX-License-Identifier: MIT
package cmd

import "testing"

func TestConfigPathFromArgs(t *testing.T) {
	tests := []struct {
		desc string
		args []string
		want string
	}{
		{desc: "no config flag", args: []string{"-d", "2", "--record"}, want: ""},
		{desc: "separate value", args: []string{"--config", "capture.yaml"}, want: "capture.yaml"},
		{desc: "equals form", args: []string{"--config=capture.yaml"}, want: "capture.yaml"},
		{desc: "mixed with other flags", args: []string{"-v", "--config", "a.yaml", "-t", "90"}, want: "a.yaml"},
		{desc: "dangling flag", args: []string{"--config"}, want: ""},
		{desc: "empty args", args: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := configPathFromArgs(tt.args); got != tt.want {
				t.Errorf("configPathFromArgs(%v): expected %q, got %q", tt.args, tt.want, got)
			}
		})
	}
}
