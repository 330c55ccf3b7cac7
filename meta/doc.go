// Package meta stores declaration metadata.
//
// A Store maps (decl.ID, Kind) to an arbitrary value. Features pick their own
// namespaced kinds:
//
//	var KindTable = meta.NewKind("model", "table")
//
//	store := meta.New()
//	store.Set(decl.Class[User](), KindTable, "users")
//
//	table, err := meta.GetAs[string](store, decl.Class[User](), KindTable)
//
// Absence is reported explicitly (ok=false or MissingEntryError); reads never
// panic. Overwriting an entry replaces it, and deleting it is how cached
// values are invalidated.
//
// There is no package-level store. Construct one per composition root and
// pass it to the components that need it.
package meta
