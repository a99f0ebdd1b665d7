package vkprobe

import "testing"

func TestVersionString(t *testing.T) {
	v := uint32(1)<<22 | uint32(3)<<12 | 204
	if got := versionString(v); got != "1.3.204" {
		t.Fatalf("versionString = %q, want 1.3.204", got)
	}
}

func TestAdapterString(t *testing.T) {
	a := Adapter{Name: "llvmpipe", APIVersion: "1.3.0", ComputeFamily: 0, ComputeQueues: 1, MaxGroupInvocs: 1024}
	want := "llvmpipe (vulkan 1.3.0, family 0 x1, max invocations 1024)"
	if got := a.String(); got != want {
		t.Fatalf("String = %q, want %q", got, want)
	}
}
