// Package tspfile reads TSPLIB instances with two-dimensional node
// coordinates, such as berlin52.tsp.
package tspfile

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/copyleftdev/tspga/internal/errors"
	"github.com/copyleftdev/tspga/internal/optimization/distance"
)

const component = "tspfile"

// Instance is a parsed TSPLIB file. Points keep file order, so point i of
// the instance is index i in every tour.
type Instance struct {
	Name           string
	Comment        string
	Type           string
	Dimension      int
	EdgeWeightType string
	Points         []distance.Point
}

// Matrix builds the distance oracle for the instance.
func (in *Instance) Matrix() (*distance.Matrix, error) {
	m, err := distance.NewMatrix(in.Points)
	if err != nil {
		return nil, errors.Wrapf(err, "instance %q", in.Name).WithComponent(component)
	}
	return m, nil
}

// ParseFile opens and parses path.
func ParseFile(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open instance").WithOperation("ParseFile").WithComponent(component)
	}
	defer f.Close()

	in, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if in.Name == "" {
		in.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return in, nil
}

// Parse reads header lines of the form "KEY: value" or "KEY : value" and
// coordinate lines "<id> <x> <y>" until EOF or an "EOF" line. Section
// keywords such as NODE_COORD_SECTION are accepted and ignored.
func Parse(r io.Reader) (*Instance, error) {
	in := &Instance{}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "EOF" {
			break
		}

		tokens := strings.Fields(line)
		if _, err := strconv.Atoi(tokens[0]); err == nil {
			p, err := parsePoint(tokens)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo).WithOperation("Parse").WithComponent(component)
			}
			in.Points = append(in.Points, p)
			continue
		}

		if key, value, ok := strings.Cut(line, ":"); ok {
			if err := in.setHeader(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo).WithOperation("Parse").WithComponent(component)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read instance").WithOperation("Parse").WithComponent(component)
	}

	if len(in.Points) == 0 {
		return nil, errors.New("instance has no coordinates").WithOperation("Parse").WithComponent(component)
	}
	if in.Dimension > 0 && in.Dimension != len(in.Points) {
		return nil, errors.Errorf("DIMENSION is %d but %d coordinates were read", in.Dimension, len(in.Points)).
			WithOperation("Parse").WithComponent(component)
	}
	return in, nil
}

func (in *Instance) setHeader(key, value string) error {
	switch strings.ToUpper(key) {
	case "NAME":
		in.Name = value
	case "COMMENT":
		if in.Comment != "" {
			in.Comment += "\n"
		}
		in.Comment += value
	case "TYPE":
		in.Type = value
	case "EDGE_WEIGHT_TYPE":
		in.EdgeWeightType = value
	case "DIMENSION":
		d, err := strconv.Atoi(value)
		if err != nil || d < 0 {
			return errors.Errorf("invalid DIMENSION %q", value)
		}
		in.Dimension = d
	}
	return nil
}

func parsePoint(tokens []string) (distance.Point, error) {
	if len(tokens) < 3 {
		return distance.Point{}, errors.Errorf("coordinate line needs id, x and y, got %d fields", len(tokens))
	}
	x, err := strconv.ParseFloat(tokens[1], 64)
	if err != nil {
		return distance.Point{}, errors.Wrapf(err, "x coordinate %q", tokens[1])
	}
	y, err := strconv.ParseFloat(tokens[2], 64)
	if err != nil {
		return distance.Point{}, errors.Wrapf(err, "y coordinate %q", tokens[2])
	}
	return distance.Point{X: x, Y: y}, nil
}
