// Package kmlexport renders a route report as a KML document for map tools.
package kmlexport

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"strings"

	kml "github.com/twpayne/go-kml"

	"github.com/routecast/routecast/internal/hazard"
	"github.com/routecast/routecast/internal/trip"
	"github.com/routecast/routecast/pkg/polyline"
)

// ContentType is the registered media type for KML.
const ContentType = "application/vnd.google-earth.kml+xml"

// ErrNoReport is returned when asked to render a nil report.
var ErrNoReport = errors.New("no report to export")

const (
	styleRoute     = "route"
	styleClear     = "waypoint-clear"
	styleCaution   = "waypoint-caution"
	styleDanger    = "waypoint-danger"
	styleClearance = "low-clearance"
)

// Write encodes the report as indented KML.
func Write(w io.Writer, report *trip.Report) error {
	if report == nil {
		return ErrNoReport
	}
	return Document(report).WriteIndent(w, "", "  ")
}

// Render returns the report as KML bytes.
func Render(report *trip.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename suggests a download name for the report.
func Filename(report *trip.Report) string {
	slug := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		s = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				return r
			}
			return '-'
		}, s)
		return strings.Trim(s, "-")
	}
	return fmt.Sprintf("%s-to-%s.kml", slug(report.Origin), slug(report.Destination))
}

// Document builds the KML tree: the route line, one placemark per waypoint
// styled by road condition severity, and one per low-clearance structure.
func Document(report *trip.Report) *kml.CompoundElement {
	children := []kml.Element{
		kml.Name(report.Origin + " to " + report.Destination),
		kml.Description(documentDescription(report)),
		kml.SharedStyle(styleRoute, kml.LineStyle(
			kml.Color(color.RGBA{R: 0x1e, G: 0x88, B: 0xe5, A: 0xff}),
			kml.Width(4),
		)),
		pointStyle(styleClear, color.RGBA{R: 0x43, G: 0xa0, B: 0x47, A: 0xff}),
		pointStyle(styleCaution, color.RGBA{R: 0xfb, G: 0xc0, B: 0x2d, A: 0xff}),
		pointStyle(styleDanger, color.RGBA{R: 0xe5, G: 0x39, B: 0x35, A: 0xff}),
		pointStyle(styleClearance, color.RGBA{R: 0x8e, G: 0x24, B: 0xaa, A: 0xff}),
	}

	if path, err := polyline.Decode(report.RouteGeometry); err == nil {
		children = append(children, kml.Placemark(
			kml.Name(routeName(report)),
			kml.StyleURL("#"+styleRoute),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coordinates(path)...),
			),
		))
	}

	if len(report.Analysis.Waypoints) > 0 {
		waypoints := []kml.Element{kml.Name("Waypoints")}
		for _, w := range report.Analysis.Waypoints {
			waypoints = append(waypoints, waypointPlacemark(w))
		}
		children = append(children, kml.Folder(waypoints...))
	}

	if len(report.Analysis.Bridges) > 0 {
		bridges := []kml.Element{kml.Name("Low clearance")}
		for _, b := range report.Analysis.Bridges {
			bridges = append(bridges, kml.Placemark(
				kml.Name(fmt.Sprintf("%s (%.1f ft)", b.Name, b.ClearanceFeet)),
				kml.Description(fmt.Sprintf("%s clearance on %s at mile %.1f", b.Level, roadOrUnknown(b.Road), b.DistanceMiles)),
				kml.StyleURL("#"+styleClearance),
				kml.Point(kml.Coordinates(coordinate(b.Coordinate))),
			))
		}
		children = append(children, kml.Folder(bridges...))
	}

	return kml.KML(kml.Document(children...))
}

func pointStyle(id string, c color.Color) kml.Element {
	return kml.SharedStyle(id, kml.IconStyle(kml.Color(c), kml.Scale(1.1)))
}

func waypointPlacemark(w hazard.WaypointReport) kml.Element {
	return kml.Placemark(
		kml.Name(w.Waypoint.Name),
		kml.Description(waypointDescription(w)),
		kml.StyleURL("#"+waypointStyle(w.Condition)),
		kml.Point(kml.Coordinates(coordinate(w.Waypoint.Coordinate))),
	)
}

func waypointStyle(c hazard.RoadCondition) string {
	switch {
	case c.Severity >= 3:
		return styleDanger
	case c.Severity >= 1:
		return styleCaution
	default:
		return styleClear
	}
}

func waypointDescription(w hazard.WaypointReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mile %.1f, ETA +%d min. ", w.Waypoint.DistanceMiles, w.Waypoint.ETAMinutes)
	if o := w.Observation; o != nil {
		fmt.Fprintf(&b, "%d°%s, %s, wind %s. ", o.Temperature, o.TemperatureUnit, o.Conditions, o.WindSpeed)
	}
	if w.Condition.Label != "" {
		fmt.Fprintf(&b, "%s: %s", w.Condition.Label, w.Condition.Recommendation)
	}
	for _, a := range w.Alerts {
		fmt.Fprintf(&b, " [%s] %s.", a.Severity, a.Event)
	}
	return strings.TrimSpace(b.String())
}

func documentDescription(r *trip.Report) string {
	a := r.Analysis
	return fmt.Sprintf("Safety %d/100 (%s). Delay risk %d%% (%s). Departure %s. %s",
		a.Safety.Score, a.Safety.Level,
		a.Delay.Percent, a.Delay.Level,
		r.Departure.Format("2006-01-02 15:04 MST"),
		r.Summary,
	)
}

func routeName(r *trip.Report) string {
	if r.RouteSummary != "" {
		return fmt.Sprintf("%s (%.0f mi)", r.RouteSummary, r.TotalDistanceMiles)
	}
	return fmt.Sprintf("Route (%.0f mi)", r.TotalDistanceMiles)
}

func roadOrUnknown(road string) string {
	if road == "" {
		return "unnamed road"
	}
	return road
}

func coordinate(c polyline.Coordinate) kml.Coordinate {
	return kml.Coordinate{Lon: c.Lon, Lat: c.Lat}
}

func coordinates(path []polyline.Coordinate) []kml.Coordinate {
	out := make([]kml.Coordinate, len(path))
	for i, c := range path {
		out[i] = coordinate(c)
	}
	return out
}
