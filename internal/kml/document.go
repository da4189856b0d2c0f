// Package kml parses KML placemark documents and flattens their folder
// hierarchy into a stream of placemarks with folder paths.
package kml

import "encoding/xml"

// KML is the root element of a KML document.
type KML struct {
	XMLName  xml.Name `xml:"kml"`
	Document Document `xml:"Document"`
}

// Document holds the top-level styles, folders, and placemarks.
type Document struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description"`
	Styles      []Style     `xml:"Style"`
	Folders     []Folder    `xml:"Folder"`
	Placemarks  []Placemark `xml:"Placemark"`
}

// Style is a shared style definition referenced by placemarks via styleUrl.
type Style struct {
	ID         string      `xml:"id,attr"`
	IconStyle  *IconStyle  `xml:"IconStyle"`
	LabelStyle *LabelStyle `xml:"LabelStyle"`
	LineStyle  *LineStyle  `xml:"LineStyle"`
	PolyStyle  *PolyStyle  `xml:"PolyStyle"`
}

type IconStyle struct {
	Scale float64 `xml:"scale"`
	Icon  *Icon   `xml:"Icon"`
}

type Icon struct {
	Href string `xml:"href"`
}

type LabelStyle struct {
	Scale float64 `xml:"scale"`
}

type LineStyle struct {
	Color string  `xml:"color"`
	Width float64 `xml:"width"`
}

type PolyStyle struct {
	Color string `xml:"color"`
}

// Folder is a named container of placemarks and nested folders.
type Folder struct {
	Name       string      `xml:"name"`
	Placemarks []Placemark `xml:"Placemark"`
	Folders    []Folder    `xml:"Folder"`
}

// Placemark is a single feature node. At most one of Point, LineString,
// Polygon is expected; presence is checked in that order downstream.
type Placemark struct {
	Name         string        `xml:"name"`
	Description  string        `xml:"description"`
	StyleURL     string        `xml:"styleUrl"`
	Point        *Point        `xml:"Point"`
	LineString   *LineString   `xml:"LineString"`
	Polygon      *Polygon      `xml:"Polygon"`
	ExtendedData *ExtendedData `xml:"ExtendedData"`
}

type Point struct {
	Coordinates string `xml:"coordinates"`
}

type LineString struct {
	Coordinates string `xml:"coordinates"`
}

// Polygon carries one outer boundary and zero or more inner boundaries
// (holes), each a coordinate ring.
type Polygon struct {
	OuterBoundary OuterBoundary   `xml:"outerBoundaryIs"`
	InnerBoundary []InnerBoundary `xml:"innerBoundaryIs"`
}

type OuterBoundary struct {
	LinearRing LinearRing `xml:"LinearRing"`
}

type InnerBoundary struct {
	LinearRing LinearRing `xml:"LinearRing"`
}

type LinearRing struct {
	Coordinates string `xml:"coordinates"`
}

// ExtendedData holds free-form key/value attributes on a placemark.
type ExtendedData struct {
	Data []Data `xml:"Data"`
}

type Data struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}
