// Package tdk is the taxon degree and enrichment kit. It turns the GloBI
// species interaction records into a table of taxa with their degree,
// literature attention and year of first description.
//
// The work happens in three stages, each usable on its own.
//
// 1. Split
//
//    The interaction dump is larger than memory. A Splitter cuts it into
//    chunk files of a fixed number of rows, each repeating the header, so that
//    later stages (or other tools) can work on it piece by piece. Sources are
//    anything Resolve understands: local files, directories of chunks, http
//    URLs, and whatever schemes other packages register (s3:// with the
//    aws/s3 package imported).
//
// 2. Degree
//
//    An Aggregator reads the chunks one at a time and counts how often each
//    taxon name appears as source or target of an interaction. Counts of a
//    chunk are merged into a Tally before the next chunk is read; MapTally
//    keeps the totals in memory, the leveldb package keeps them on disk. The
//    result is a degree table sorted by descending degree, ties by name.
//
// 3. Enrich
//
//    An Enricher walks the degree table one row at a time and asks three
//    Lookupers (see the lookup package) for the number of papers in Semantic
//    Scholar and PubMed mentioning the taxon and for the year Wikidata says it
//    was first described. Every field is either Absent, Known or Unavailable;
//    only Absent fields are looked up, so an interrupted run picks up where
//    it left off. Progress is saved as immutable Checkpoints, optionally
//    verified against a Manifest (see the boltdb package).
package tdk
