// Package storeconnect downloads App Store Connect sales and trends reports.
//
// A TokenIssuer signs an ES256 JWT scoped to exactly one request line, and a
// ReportClient builds the filter query, signs it, performs the GET and
// optionally gunzips the payload. Report bodies are returned as opaque bytes.
package storeconnect
