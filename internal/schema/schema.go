// Package schema loads and validates the feature column schema that fixes
// the length and order of model feature vectors.
//
// A column name has the form {coordinate}_{part}_{index}, for example
// "x_left_hand_3" or "z_face_101". The schema is supplied by the inference
// service's training configuration and is immutable once loaded; a
// malformed column is a configuration error surfaced at load time, never
// per frame.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ayusman/signstream/internal/landmark"
)

// Coord identifies which coordinate of a keypoint a column selects.
type Coord byte

const (
	CoordX Coord = 'x'
	CoordY Coord = 'y'
	CoordZ Coord = 'z'
)

// Column is one parsed feature column.
type Column struct {
	Name  string
	Coord Coord
	Part  landmark.Part
	Index int
}

// Schema is an ordered, validated list of feature columns.
type Schema struct {
	columns []Column
}

// Len returns the number of columns, which is also the feature vector length.
func (s *Schema) Len() int {
	return len(s.columns)
}

// Columns returns the columns in schema order.
func (s *Schema) Columns() []Column {
	return s.columns
}

// Parse validates and parses an ordered list of column names.
// It returns an error naming the first malformed column.
func Parse(names []string) (*Schema, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("schema has no columns")
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		col, err := parseColumn(name)
		if err != nil {
			return nil, fmt.Errorf("column %d (%q): %w", i, name, err)
		}
		columns[i] = col
	}

	return &Schema{columns: columns}, nil
}

// parseColumn splits "x_left_hand_3" into coordinate "x", part
// "left_hand" and index 3. The part may itself contain underscores, so
// the first and last tokens are fixed and the middle is the part name.
func parseColumn(name string) (Column, error) {
	tokens := strings.Split(name, "_")
	if len(tokens) < 3 {
		return Column{}, fmt.Errorf("want {coord}_{part}_{index}")
	}

	var coord Coord
	switch tokens[0] {
	case "x":
		coord = CoordX
	case "y":
		coord = CoordY
	case "z":
		coord = CoordZ
	default:
		return Column{}, fmt.Errorf("unknown coordinate %q", tokens[0])
	}

	index, err := strconv.Atoi(tokens[len(tokens)-1])
	if err != nil || index < 0 {
		return Column{}, fmt.Errorf("invalid landmark index %q", tokens[len(tokens)-1])
	}

	part := landmark.Part(strings.Join(tokens[1:len(tokens)-1], "_"))
	if !part.Valid() {
		return Column{}, fmt.Errorf("unknown part %q", string(part))
	}
	if index >= part.Size() {
		return Column{}, fmt.Errorf("index %d out of range for part %q (max %d)",
			index, string(part), part.Size()-1)
	}

	return Column{Name: name, Coord: coord, Part: part, Index: index}, nil
}

// inferenceArgs mirrors the inference service's training configuration file.
type inferenceArgs struct {
	SelectedColumns []string `json:"selected_columns"`
}

// Load reads a schema from an inference_args.json style file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var args inferenceArgs
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("parse schema file %s: %w", path, err)
	}

	s, err := Parse(args.SelectedColumns)
	if err != nil {
		return nil, fmt.Errorf("schema file %s: %w", path, err)
	}
	return s, nil
}

// HandSchema returns the builtin 42-column schema used by the static-sign
// mode: x and y of each right-hand keypoint, interleaved per keypoint.
func HandSchema() *Schema {
	names := make([]string, 0, 2*landmark.HandLandmarks)
	for i := 0; i < landmark.HandLandmarks; i++ {
		names = append(names,
			fmt.Sprintf("x_right_hand_%d", i),
			fmt.Sprintf("y_right_hand_%d", i),
		)
	}

	s, err := Parse(names)
	if err != nil {
		// The builtin schema is generated from valid parts and indices.
		panic(err)
	}
	return s
}
