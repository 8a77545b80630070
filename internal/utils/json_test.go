package utils

import "testing"

func TestMarshalNoEscape(t *testing.T) {
	out, err := MarshalNoEscape(map[string]string{"prompt": "<b>a & b</b>"})
	if err != nil {
		t.Fatalf("MarshalNoEscape: %v", err)
	}
	want := `{"prompt":"<b>a & b</b>"}`
	if string(out) != want {
		t.Errorf("MarshalNoEscape = %s, want %s", out, want)
	}
}
