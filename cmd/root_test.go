package cmd

import (
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := map[string]bool{"serve": false, "setup": false, "version": false}
	for _, sub := range rootCmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestBindConfigFlags(t *testing.T) {
	v := newViper()
	bindConfigFlags(newVersionCmd(), v)
	if got := v.GetString("log.level"); got != "info" {
		t.Errorf("log.level default = %q, want %q", got, "info")
	}
	if got := v.GetString("http.addr"); got != ":8081" {
		t.Errorf("http.addr default = %q, want %q", got, ":8081")
	}
}
