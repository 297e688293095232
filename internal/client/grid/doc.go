// Package grid turns a server-described tabular payload into a typed,
// sortable, filterable and pageable in-memory grid.
//
// Pipeline
//
//	FetchGridData ─► MapColumns ─► ApplyOverrides ─► CoerceRows ─► Process
//
// MapColumns derives a Column per header from its format code, pairing
// headers[i] with datafield[i] by position. CoerceRows converts each raw
// row to exactly the mapped columns. Process applies filter, sort and
// paging, in that order, each behind its own toggle.
//
// Grid ties the pipeline to a transport: it loads a Request, keeps the
// coerced rows and the caller's QueryState, discards responses of
// superseded loads and memoises the visible slice.
package grid
