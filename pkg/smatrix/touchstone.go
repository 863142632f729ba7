package smatrix

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// speedOfLight expressed so that f[GHz] = speedOfLight / lambda[um].
const speedOfLight = 299792.458

const (
	portsComment      = "! ports:"
	wavelengthComment = "! wavelength-um:"
	pairsPerLine      = 4
)

// FileName returns the conventional Touchstone file name for an n-port matrix.
func FileName(numPorts int) string {
	return fmt.Sprintf("smatrix.s%dp", numPorts)
}

// WriteTouchstone serializes m as a Touchstone v1 file using real/imaginary pairs.
func WriteTouchstone(w io.Writer, m *SMatrix) error {
	for _, p := range m.Ports {
		if p == "" || strings.ContainsAny(p, " \t\r\n") {
			return fmt.Errorf("port name %q cannot be written to touchstone", p)
		}
	}
	for _, wl := range m.Wavelengths {
		if wl <= 0 {
			return fmt.Errorf("wavelength %g cannot be converted to frequency", wl)
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s %s\n", portsComment, strings.Join(m.Ports, " "))
	wls := make([]string, len(m.Wavelengths))
	for i, wl := range m.Wavelengths {
		wls[i] = formatFloat(wl)
	}
	fmt.Fprintf(bw, "%s %s\n", wavelengthComment, strings.Join(wls, " "))
	fmt.Fprintln(bw, "# GHZ S RI R 50")

	n := m.NumPorts()
	// Touchstone wants ascending frequency, which is descending wavelength.
	for k := len(m.Wavelengths) - 1; k >= 0; k-- {
		bw.WriteString(formatFloat(speedOfLight / m.Wavelengths[k]))
		if n == 2 {
			for _, ij := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
				writePair(bw, m.at(ij[0], ij[1], k))
			}
			bw.WriteByte('\n')
			continue
		}
		for i := 0; i < n; i++ {
			if i > 0 {
				bw.WriteString("  ")
			}
			for j := 0; j < n; j++ {
				if j > 0 && j%pairsPerLine == 0 {
					bw.WriteString("\n ")
				}
				writePair(bw, m.at(i, j, k))
			}
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

// WriteTouchstoneFile writes m to path, creating parent directories.
func WriteTouchstoneFile(path string, m *SMatrix) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTouchstone(f, m); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func writePair(bw *bufio.Writer, v complex128) {
	bw.WriteByte(' ')
	bw.WriteString(formatFloat(real(v)))
	bw.WriteByte(' ')
	bw.WriteString(formatFloat(imag(v)))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type dataFormat int

const (
	formatMA dataFormat = iota
	formatRI
	formatDB
)

// ReadTouchstone parses a Touchstone v1 file. Port names come from the
// "! ports:" comment when present, from defaultPorts otherwise.
func ReadTouchstone(r io.Reader, defaultPorts []string) (*SMatrix, error) {
	var (
		ports       = defaultPorts
		wavelengths []float64
		numbers     []float64
		unitScale   = 1.0 // to GHz
		format      = formatMA
		sawOption   bool
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, portsComment):
			ports = strings.Fields(strings.TrimPrefix(line, portsComment))
			continue
		case strings.HasPrefix(line, wavelengthComment):
			for _, tok := range strings.Fields(strings.TrimPrefix(line, wavelengthComment)) {
				v, err := strconv.ParseFloat(tok, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad wavelength %q", lineNo, tok)
				}
				wavelengths = append(wavelengths, v)
			}
			continue
		}
		if idx := strings.IndexByte(line, '!'); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if sawOption {
				continue
			}
			sawOption = true
			var err error
			unitScale, format, err = parseOptionLine(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}
		for _, tok := range strings.Fields(line) {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad number %q", lineNo, tok)
			}
			numbers = append(numbers, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	n := len(ports)
	if n == 0 {
		return nil, fmt.Errorf("touchstone data has no port names")
	}
	recordLen := 1 + 2*n*n
	if len(numbers)%recordLen != 0 {
		return nil, fmt.Errorf("touchstone data has %d values, not a multiple of %d for %d ports", len(numbers), recordLen, n)
	}
	numRecords := len(numbers) / recordLen
	if wavelengths != nil && len(wavelengths) != numRecords {
		return nil, fmt.Errorf("wavelength comment lists %d points, data has %d", len(wavelengths), numRecords)
	}
	if wavelengths == nil {
		wavelengths = make([]float64, numRecords)
		for rec := 0; rec < numRecords; rec++ {
			f := numbers[rec*recordLen] * unitScale
			if f <= 0 {
				return nil, fmt.Errorf("record %d: non-positive frequency %g", rec, f)
			}
			wavelengths[numRecords-1-rec] = speedOfLight / f
		}
	}

	m := New(ports, wavelengths)
	for rec := 0; rec < numRecords; rec++ {
		k := numRecords - 1 - rec
		vals := numbers[rec*recordLen+1 : (rec+1)*recordLen]
		for p := 0; p < n*n; p++ {
			i, j := p/n, p%n
			if n == 2 {
				// 2-port data is column-major: S11 S21 S12 S22.
				i, j = p%n, p/n
			}
			m.set(i, j, k, toComplex(format, vals[2*p], vals[2*p+1]))
		}
	}
	return m, nil
}

// ReadTouchstoneFile reads a Touchstone file from disk.
func ReadTouchstoneFile(path string, defaultPorts []string) (*SMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadTouchstone(f, defaultPorts)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return m, nil
}

func parseOptionLine(line string) (float64, dataFormat, error) {
	scale, format := 1.0, formatMA
	fields := strings.Fields(strings.ToUpper(strings.TrimPrefix(line, "#")))
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "HZ":
			scale = 1e-9
		case "KHZ":
			scale = 1e-6
		case "MHZ":
			scale = 1e-3
		case "GHZ":
			scale = 1
		case "S":
		case "Y", "Z", "H", "G":
			return 0, 0, fmt.Errorf("unsupported network parameter %s", fields[i])
		case "MA":
			format = formatMA
		case "RI":
			format = formatRI
		case "DB":
			format = formatDB
		case "R":
			i++ // reference impedance value is not used
		default:
			return 0, 0, fmt.Errorf("unknown option %q", fields[i])
		}
	}
	return scale, format, nil
}

func toComplex(format dataFormat, a, b float64) complex128 {
	switch format {
	case formatRI:
		return complex(a, b)
	case formatDB:
		return cmplx.Rect(math.Pow(10, a/20), b*math.Pi/180)
	default:
		return cmplx.Rect(a, b*math.Pi/180)
	}
}
