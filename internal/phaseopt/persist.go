package phaseopt

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var ErrCorruptParams = errors.New("corrupt surface params")

const (
	paramsMagic   = "PHSP"
	paramsVersion = uint16(1)
	maxSurfaces   = 1 << 16
)

// Save writes p to path as little-endian binary:
//
//	"PHSP", uint16 version, int32 N, int32 P,
//	per surface: float64 spacing, uint8 spacing flag,
//	             (P+1)(P+2)/2 float64 coefficients, as many uint8 flags.
//
// The file is written next to path and renamed into place, so a failed save
// never leaves a truncated file behind.
func (p *SurfaceParams) Save(path string) error {
	if len(p.Surfaces) == 0 {
		return fmt.Errorf("refusing to save empty surface params")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if tmp != "" {
			_ = os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	if err := p.write(w); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	tmp = ""
	DebugLog("Saved surface params N=%d, P=%d to %s", p.N(), p.Order, path)
	return nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func (p *SurfaceParams) write(w io.Writer) error {
	if _, err := io.WriteString(w, paramsMagic); err != nil {
		return err
	}
	header := []any{paramsVersion, int32(len(p.Surfaces)), int32(p.Order)}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for i, s := range p.Surfaces {
		if s.Coeffs.Order() != p.Order {
			return fmt.Errorf("surface %d has order %d, stack has %d", i, s.Coeffs.Order(), p.Order)
		}
		if err := binary.Write(w, binary.LittleEndian, s.Spacing); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, boolByte(s.SpacingOptimizable)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, s.Coeffs.vals); err != nil {
			return err
		}
		mask := make([]uint8, len(s.Coeffs.opt))
		for j, o := range s.Coeffs.opt {
			mask[j] = boolByte(o)
		}
		if _, err := w.Write(mask); err != nil {
			return err
		}
	}
	return nil
}

// LoadSurfaceParams reads a file written by Save. Range settings
// (coefficient scale, spacing range) are not part of the file and get their
// defaults.
func LoadSurfaceParams(path string) (*SurfaceParams, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := readSurfaceParams(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Load replaces p's surfaces with the ones stored at path. p is left
// untouched when reading fails.
func (p *SurfaceParams) Load(path string) error {
	q, err := LoadSurfaceParams(path)
	if err != nil {
		return err
	}
	p.Order, p.Surfaces = q.Order, q.Surfaces
	return nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptParams, fmt.Sprintf(format, args...))
}

func readSurfaceParams(r io.Reader) (*SurfaceParams, error) {
	magic := make([]byte, len(paramsMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, corrupt("reading magic: %v", err)
	}
	if string(magic) != paramsMagic {
		return nil, corrupt("bad magic %q", magic)
	}
	var (
		version uint16
		n, ord  int32
	)
	for _, v := range []any{&version, &n, &ord} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, corrupt("reading header: %v", err)
		}
	}
	if version != paramsVersion {
		return nil, corrupt("unsupported version %d", version)
	}
	if n < 1 || n > maxSurfaces {
		return nil, corrupt("surface count %d out of range", n)
	}
	if ord < 0 || ord > MaxOrder {
		return nil, corrupt("polynomial order %d out of range", ord)
	}
	// allocated as read: a bogus count fails at the first missing surface
	p := &SurfaceParams{
		Order:            int(ord),
		Surfaces:         make([]Surface, 0, min(int(n), 64)),
		CoefficientScale: CoefficientScale,
		SpacingMin:       SpacingMin,
		SpacingMax:       SpacingMax,
	}
	for i := 0; i < int(n); i++ {
		c, err := NewTriangle(int(ord))
		if err != nil {
			return nil, corrupt("%v", err)
		}
		s := Surface{Coeffs: c}
		var flag uint8
		if err := binary.Read(r, binary.LittleEndian, &s.Spacing); err != nil {
			return nil, corrupt("surface %d spacing: %v", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &flag); err != nil {
			return nil, corrupt("surface %d spacing flag: %v", i, err)
		}
		s.SpacingOptimizable = flag != 0
		if err := binary.Read(r, binary.LittleEndian, c.vals); err != nil {
			return nil, corrupt("surface %d coefficients: %v", i, err)
		}
		mask := make([]uint8, len(c.opt))
		if _, err := io.ReadFull(r, mask); err != nil {
			return nil, corrupt("surface %d coefficient flags: %v", i, err)
		}
		for j, b := range mask {
			c.opt[j] = b != 0
		}
		p.Surfaces = append(p.Surfaces, s)
	}
	var extra [1]byte
	if k, _ := r.Read(extra[:]); k != 0 {
		return nil, corrupt("trailing data after %d surfaces", n)
	}
	return p, nil
}
