// Package domain models NASA EONET natural-hazard events and the map markers
// drawn for them.
//
// # Data Source
//
// Events come from the Earth Observatory Natural Event Tracker (EONET) v3 API,
// https://eonet.gsfc.nasa.gov/api/v3/events. The endpoint accepts optional
// "start" and "end" dates (YYYY-MM-DD) and a "limit" on the number of events.
// Every request fetches fresh data; nothing is cached.
//
// # Geometry Conventions
//
// Each event carries a list of dated geometries. Only the first entry is used
// for placement. Coordinates follow GeoJSON order:
//
//	Point:   [lon, lat]                 e.g. [-117.53, 34.12]
//	Polygon: [[[lon, lat], ...], ...]   treated as malformed
//
// Anything other than a two-number pair is malformed and the event is skipped
// without aborting the rest of the batch. See [Geometry.Point].
//
// # Categories
//
// Only the first category title is consulted. [Glyph] maps it to an emoji
// through a fixed table; unknown or missing categories get [FallbackGlyph].
//
// # Markers
//
// [NewMarker] turns an event into a [Marker]: a point, an emoji [Icon] sized
// 64x64 and anchored at (16, 32), and a [Popup] with the title, description
// (or a placeholder) and a link to the first source (or "#").
package domain
