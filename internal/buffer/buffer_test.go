package buffer

import (
	"bytes"
	"strings"
	"testing"
)

func ramp(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

func TestNewIsSilent(t *testing.T) {
	b := New(16)
	if b.Size() != 16 {
		t.Fatalf("Size() = %d, want 16", b.Size())
	}
	for i, v := range b.Data() {
		if v != 0 {
			t.Fatalf("sample %d = %v, want 0", i, v)
		}
	}
}

func TestReadCycles(t *testing.T) {
	tests := []struct {
		name string
		size int
		hops [][]float64
		want []float64
	}{
		{
			name: "full window",
			size: 4,
			hops: [][]float64{{1, 2, 3, 4}},
			want: []float64{1, 2, 3, 4},
		},
		{
			name: "half hops",
			size: 4,
			hops: [][]float64{{1, 2}, {3, 4}, {5, 6}},
			want: []float64{3, 4, 5, 6},
		},
		{
			name: "single samples",
			size: 3,
			hops: [][]float64{{1}, {2}, {3}, {4}},
			want: []float64{2, 3, 4},
		},
		{
			name: "oversized read keeps newest",
			size: 3,
			hops: [][]float64{{1, 2, 3, 4, 5}},
			want: []float64{3, 4, 5},
		},
		{
			name: "empty read",
			size: 2,
			hops: [][]float64{{7, 8}, {}},
			want: []float64{7, 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.size)
			for _, hop := range tt.hops {
				b.Read(hop)
			}
			if got := b.Data(); !equal(got, tt.want) {
				t.Errorf("Data() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCycle(t *testing.T) {
	b := FromSlice(ramp(8, 0))
	b.Cycle(0)
	if !equal(b.Data(), ramp(8, 0)) {
		t.Fatalf("Cycle(0) changed the window: %v", b.Data())
	}

	b.Cycle(3)
	want := []float64{3, 4, 5, 6, 7}
	if !equal(b.Data()[:5], want) {
		t.Errorf("after Cycle(3) head = %v, want %v", b.Data()[:5], want)
	}
	if b.Size() != 8 {
		t.Errorf("Cycle changed Size() to %d", b.Size())
	}
}

func TestReadSlidingWindow(t *testing.T) {
	const size, hop = 1024, 256
	b := New(size)
	signal := ramp(size*4, 0)
	for off := 0; off+hop <= len(signal); off += hop {
		b.Read(signal[off : off+hop])
		end := off + hop
		if end < size {
			continue
		}
		if got, want := b.Data()[0], signal[end-size]; got != want {
			t.Fatalf("window ending at %d starts with %v, want %v", end, got, want)
		}
		if got, want := b.Data()[size-1], signal[end-1]; got != want {
			t.Fatalf("window ending at %d ends with %v, want %v", end, got, want)
		}
	}
}

func TestFromSliceCopies(t *testing.T) {
	src := []float64{1, 2, 3}
	b := FromSlice(src)
	src[0] = 42
	if b.Data()[0] != 1 {
		t.Error("FromSlice must not alias its argument")
	}

	dst := make([]float64, 3)
	if n := b.Write(dst); n != 3 || !equal(dst, []float64{1, 2, 3}) {
		t.Errorf("Write() = %d %v", n, dst)
	}

	b.Clear()
	if !equal(b.Data(), []float64{0, 0, 0}) {
		t.Errorf("Clear() left %v", b.Data())
	}
}

func TestCSV(t *testing.T) {
	var out bytes.Buffer
	if err := FromSlice([]float64{0.5, -1}).CSV(&out); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || lines[0] != "0.500000" || lines[1] != "-1.000000" {
		t.Errorf("CSV() = %q", out.String())
	}
}

func TestReadHotPath(t *testing.T) {
	b := New(2048)
	hop := ramp(512, 1)
	allocs := testing.AllocsPerRun(100, func() {
		b.Read(hop)
	})
	if allocs > 0 {
		t.Errorf("Read allocates %v times per call, want 0", allocs)
	}
}

func BenchmarkRead(b *testing.B) {
	buf := New(4096)
	hop := ramp(1024, 0)
	b.ReportAllocs()
	for b.Loop() {
		buf.Read(hop)
	}
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
