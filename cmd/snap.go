package main

import (
	"fmt"
	"io"
	"os"

	"github.com/royalcat/rgeopins/geomodel"
	"github.com/royalcat/rgeopins/region"
	"github.com/urfave/cli/v3"
)

func snap(ctx *cli.Context) error {
	step := ctx.Float64("step")

	if !ctx.Bool("stdin") {
		p := region.Snap(geomodel.NewGeoPoint(ctx.Float64("lat"), ctx.Float64("lng")), step)
		return writePoints(os.Stdout, geomodel.PointList{p})
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	points, err := snapPoints(data, step)
	if err != nil {
		return err
	}
	return writePoints(os.Stdout, points)
}

// snapPoints accepts both [{"lat":..,"lng":..}] and [[lat, lng]] lists.
func snapPoints(data []byte, step float64) (geomodel.PointList, error) {
	var points geomodel.PointList
	err := points.UnmarshalJSON(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing points: %w", err)
	}
	for i, p := range points {
		points[i] = region.Snap(p, step)
	}
	return points, nil
}

func writePoints(w io.Writer, points geomodel.PointList) error {
	data, err := points.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
