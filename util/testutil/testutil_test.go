package testutil

import (
	"reflect"
	"testing"
)

func TestJS(t *testing.T) {
	tests := []struct {
		name string
		arg  interface{}
		want string
	}{
		{
			name: "param bag",
			arg:  map[string]interface{}{"expr": "@hourly"},
			want: `{"expr":"@hourly"}`,
		},
		{
			name: "component ref",
			arg: struct {
				Key  string `json:"key"`
				Text string `json:"text"`
			}{"action::reply", "pong"},
			want: `{"key":"action::reply","text":"pong"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JS(tt.arg); got != tt.want {
				t.Errorf("JS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDwimjs(t *testing.T) {
	tests := []struct {
		name string
		arg  interface{}
		want interface{}
	}{
		{
			name: "JSON string",
			arg:  `{"key":"trigger::message"}`,
			want: map[string]interface{}{"key": "trigger::message"},
		},
		{
			name: "JSON bytes",
			arg:  []byte(`["a","b"]`),
			want: []interface{}{"a", "b"},
		},
		{
			name: "non-string type",
			arg:  12345,
			want: 12345,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dwimjs(tt.arg); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Dwimjs() = %v, want %v", got, tt.want)
			}
		})
	}
}
