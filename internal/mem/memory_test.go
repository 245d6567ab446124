package mem

import "testing"

func TestNewFromBytesSegmentBounds(t *testing.T) {
	m := NewFromBytes([]byte{1, 2, 3, 4}, []byte{5, 6})
	if !m.inText(TextStart) || m.inText(TextStart+4) {
		t.Fatalf("text segment bounds wrong: start=%v end=%v", m.TextStart, m.TextEnd)
	}
	if !m.inData(DataStart) || m.inData(DataStart+2) {
		t.Fatalf("data segment bounds wrong: start=%v end=%v", m.DataStart, m.DataEnd)
	}
}

func TestReadWriteWordRoundTrip(t *testing.T) {
	m := NewFromBytes(nil, make([]byte, 8))
	if err := m.SetWord(DataStart, 0xdeadbeef); err != nil {
		t.Fatalf("SetWord: %v", err)
	}
	got, err := m.ReadWord(DataStart)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if got != 0xdeadbeef {
		t.Fatalf("got %#x, want 0xdeadbeef", got)
	}
}

func TestSetByteRejectsTextSegment(t *testing.T) {
	m := NewFromBytes(make([]byte, 4), nil)
	err := m.SetByte(TextStart, 0xff)
	if err == nil {
		t.Fatal("expected a fault writing into .text via SetByte")
	}
	var fault *Fault
	if !asFault(err, &fault) {
		t.Fatalf("expected *Fault, got %T", err)
	}
	if fault.Kind != FaultAddressStore {
		t.Fatalf("kind = %v, want FaultAddressStore", fault.Kind)
	}
}

func TestSetTextWordBypassesReadOnlyText(t *testing.T) {
	m := NewFromBytes(make([]byte, 4), nil)
	if err := m.SetTextWord(TextStart, 0x0d0d0d0d); err != nil {
		t.Fatalf("SetTextWord: %v", err)
	}
	got, err := m.ReadTextWord(TextStart)
	if err != nil {
		t.Fatalf("ReadTextWord: %v", err)
	}
	if got != 0x0d0d0d0d {
		t.Fatalf("got %#x, want 0x0d0d0d0d", got)
	}
}

func TestReadWordMisalignedFaults(t *testing.T) {
	m := NewFromBytes(nil, make([]byte, 8))
	if _, err := m.ReadWord(DataStart + 1); err == nil {
		t.Fatal("expected fault on misaligned read")
	}
}

func TestReadByteOutOfRangeFaults(t *testing.T) {
	m := NewFromBytes(make([]byte, 4), make([]byte, 4))
	if _, err := m.ReadByte(0x00000000); err == nil {
		t.Fatal("expected fault reading unowned address")
	}
}

func TestAllowsExecutionOfOnlyText(t *testing.T) {
	m := NewFromBytes(make([]byte, 8), make([]byte, 8))
	if !m.AllowsExecutionOf(TextStart) {
		t.Fatal("expected text start to be executable")
	}
	if m.AllowsExecutionOf(DataStart) {
		t.Fatal("data segment must not be executable")
	}
}

func TestAppendTextAndDataGrowSegments(t *testing.T) {
	m := New()
	m.AppendText(0x00, 0x00, 0x00, 0x00)
	if m.TextEnd != TextStart+4 {
		t.Fatalf("TextEnd = %#x, want %#x", m.TextEnd, TextStart+4)
	}
	m.AppendData(0xff, 0xff)
	if m.DataEnd != DataStart+2 {
		t.Fatalf("DataEnd = %#x, want %#x", m.DataEnd, DataStart+2)
	}
}

func asFault(err error, target **Fault) bool {
	f, ok := err.(*Fault)
	if ok {
		*target = f
	}
	return ok
}
