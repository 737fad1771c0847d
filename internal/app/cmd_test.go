package app

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{name: "引数なしはserve", args: []string{}, want: CommandServe},
		{name: "nilはserve", args: nil, want: CommandServe},
		{name: "serve指定", args: []string{"serve"}, want: CommandServe},
		{name: "worker指定", args: []string{"worker"}, want: CommandWorker},
		{name: "migrate指定", args: []string{"migrate"}, want: CommandMigrate},
		{name: "healthcheck指定", args: []string{"healthcheck"}, want: CommandHealthcheck},
		{name: "不明なコマンドはserve", args: []string{"unknown"}, want: CommandServe},
		{name: "余分な引数は無視", args: []string{"worker", "extra"}, want: CommandWorker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCommand(tt.args)
			if got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
