package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/voxelsplace/voxbuild/build"
	"github.com/voxelsplace/voxbuild/grid"
	"github.com/voxelsplace/voxbuild/shapes"
	"github.com/voxelsplace/voxbuild/storage"
)

// EditSet is the JSON document accepted by ApplyEdits:
//
//	{
//	  "replace": [{"from": 1, "to": 4}],
//	  "material": 2,
//	  "cells": [{"x": 3, "y": 0, "z": 7, "material": 5, "content": 255}]
//	}
//
// Replacements run first, then the optional repaint of all occupied cells,
// then the per-cell overrides.
type EditSet struct {
	Replace  []Replacement `json:"replace,omitempty"`
	Material *uint8        `json:"material,omitempty"`
	Cells    []CellEdit    `json:"cells,omitempty"`
}

type Replacement struct {
	From uint8 `json:"from"`
	To   uint8 `json:"to"`
}

type CellEdit struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
	shapes.Cell
}

// ParseEdits decodes an EditSet.
func ParseEdits(data []byte) (*EditSet, error) {
	var e EditSet
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("invalid edits JSON: %w", err)
	}
	return &e, nil
}

// Action combines the edits into one cell action. Cells outside the
// volume are ignored.
func (e *EditSet) Action() build.CellAction {
	var actions []build.CellAction
	for _, r := range e.Replace {
		actions = append(actions, shapes.ReplaceMaterial(r.From, r.To))
	}
	if e.Material != nil {
		actions = append(actions, shapes.SetMaterial(*e.Material))
	}
	if len(e.Cells) > 0 {
		cells := make(shapes.Edits, len(e.Cells))
		for _, c := range e.Cells {
			cells[grid.V3(c.X, c.Y, c.Z)] = c.Cell
		}
		actions = append(actions, cells.Action())
	}
	return shapes.Chain(actions...)
}

// ApplyEdits runs the edits over vol in place.
func ApplyEdits(ctx context.Context, vol grid.VolumeStorage, e *EditSet, opts Options) error {
	b := opts.builder(opts.Progress)
	if err := b.Apply(ctx, vol, e.Action()); err != nil {
		return fmt.Errorf("apply edits: %w", err)
	}
	if opts.ShellMaterial != nil {
		if err := b.ApplyFaceMaterial(ctx, vol, *opts.ShellMaterial); err != nil {
			return fmt.Errorf("apply face material: %w", err)
		}
	}
	return nil
}

// EditVoxpack decodes pack, applies the JSON edits and re-encodes it.
func EditVoxpack(ctx context.Context, pack, edits []byte, opts Options) ([]byte, error) {
	e, err := ParseEdits(edits)
	if err != nil {
		return nil, err
	}
	vol, err := storage.UnmarshalBlockStore(pack)
	if err != nil {
		return nil, err
	}
	if err := ApplyEdits(ctx, vol, e, opts); err != nil {
		return nil, err
	}
	return vol.MarshalPack(opts.Layout, opts.Compression)
}
