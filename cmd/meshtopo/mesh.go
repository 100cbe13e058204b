package main

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/soypat/meshtopo"
	"github.com/soypat/meshtopo/data"
	"github.com/soypat/meshtopo/grid"
	"github.com/soypat/meshtopo/mapping"
	"github.com/soypat/meshtopo/topology"
)

// addLatticeFlags registers the flags describing the generated lattice.
func addLatticeFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Slice("size", []float64{1, 1, 1}, "Box size along x, y and z")
	cmd.Flags().Float64P("resolution", "r", 0.25, "Cell side")
	cmd.Flags().Bool("swap", false, "Mirror the tetrahedral split of odd lattice cells")
}

type meshes struct {
	grid   *grid.Mesh
	coarse *topology.Topology
	fine   *topology.Topology
	m      *mapping.HexaToTetra
	// coords follows the coarse point numbering.
	coords *data.Points[r3.Vec]
}

// buildMeshes generates the lattice topology and its tetrahedral decomposition.
func buildMeshes(cmd *cobra.Command) (*meshes, error) {
	size, err := cmd.Flags().GetFloat64Slice("size")
	if err != nil {
		return nil, fmt.Errorf("error reading size flag: %w", err)
	}
	if len(size) != 3 {
		return nil, fmt.Errorf("size needs 3 components, got %d", len(size))
	}
	res, _ := cmd.Flags().GetFloat64("resolution")
	swap, _ := cmd.Flags().GetBool("swap")
	check := viper.GetBool("check")

	g, err := grid.Lattice(r3.Box{Max: r3.Vec{X: size[0], Y: size[1], Z: size[2]}}, res)
	if err != nil {
		return nil, err
	}
	coarse, err := g.Topology(topology.WithLogger(logger), topology.WithCheck(check))
	if err != nil {
		return nil, err
	}
	coords, err := data.NewPoints(coarse, g.Nodes, data.LerpVec)
	if err != nil {
		return nil, err
	}
	fine := topology.New(0, topology.WithLogger(logger), topology.WithCheck(check), topology.WithLevels(meshtopo.LevelTetra))
	nx, ny, nz := g.Dims()
	m, err := mapping.New(coarse, fine, mapping.WithSwapping(swap), mapping.WithLattice(nx, ny, nz), mapping.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Info("mesh built", "points", coarse.NumPoints(), "hexahedra", coarse.Hexas().Len(), "tetrahedra", fine.Tetras().Len())
	return &meshes{grid: g, coarse: coarse, fine: fine, m: m, coords: coords}, nil
}

// writeJSON writes v to the configured output.
func writeJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling output: %w", err)
	}
	out = append(out, '\n')
	if path := viper.GetString("output"); path != "" {
		return os.WriteFile(path, out, 0644)
	}
	_, err = os.Stdout.Write(out)
	return err
}

// spy plots the adjacency pattern of edges.
func spy(path, title string, npoints int, edges []meshtopo.Edge) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "point"
	p.Y.Label.Text = "point"
	p.X.Min, p.Y.Min = 0, 0
	p.X.Max, p.Y.Max = float64(npoints), float64(npoints)
	pts := make(plotter.XYs, 0, 2*len(edges)+npoints)
	for i := 0; i < npoints; i++ {
		pts = append(pts, plotter.XY{X: float64(i), Y: float64(i)})
	}
	for _, e := range edges {
		a, b := float64(e[0]), float64(e[1])
		pts = append(pts, plotter.XY{X: a, Y: b}, plotter.XY{X: b, Y: a})
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Radius = vg.Points(0.5)
	s.GlyphStyle.Color = color.Black
	p.Add(s)
	return p.Save(4*vg.Inch, 4*vg.Inch, path)
}
