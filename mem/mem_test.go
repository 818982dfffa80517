package mem

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/TephrocactusMYC/NeoOS/defs"
)

func TestSvmReadWrite(t *testing.T) {
	vm := MkSvm()
	vm.Map(0x10000, 2)

	msg := []byte("hello, kernel")
	if err := vm.Userwrite(0x10ff8, msg); err != 0 {
		t.Fatalf("write: %v", err)
	}
	got := make([]byte, len(msg))
	if err := vm.Userread(0x10ff8, got); err != 0 {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, msg) {
		t.Fatalf("got %q", got)
	}
	// unmapped access faults
	if err := vm.Userwrite(0x90000, msg); err != -defs.EFAULT {
		t.Fatalf("expected -EFAULT, got %v", err)
	}
	fmt.Printf("Pass TestSvmReadWrite\n")
}

func TestSvmCow(t *testing.T) {
	vm := MkSvm()
	vm.Map(0x10000, 1)
	if err := vm.Userwrite(0x10000, []byte("parent")); err != 0 {
		t.Fatalf("write: %v", err)
	}

	child := vm.Fork().(*Svm_t)
	if child.P_pmap() == vm.P_pmap() {
		t.Fatalf("clone shares the pmap id")
	}

	// the clone sees the parent's data
	got := make([]byte, 6)
	if err := child.Userread(0x10000, got); err != 0 {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "parent" {
		t.Fatalf("got %q", got)
	}

	// a child write is invisible to the parent
	if err := child.Userwrite(0x10000, []byte("child!")); err != 0 {
		t.Fatalf("write: %v", err)
	}
	if err := vm.Userread(0x10000, got); err != 0 {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "parent" {
		t.Fatalf("cow leak into parent: %q", got)
	}

	// and a later parent write is invisible to the child
	if err := vm.Userwrite(0x10000, []byte("again!")); err != 0 {
		t.Fatalf("write: %v", err)
	}
	if err := child.Userread(0x10000, got); err != 0 {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "child!" {
		t.Fatalf("cow leak into child: %q", got)
	}
	fmt.Printf("Pass TestSvmCow\n")
}
