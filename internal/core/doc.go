// Package core holds the batch validation and reporting logic.
//
// It is independent of HTTP and Postgres: the web package calls into a
// [Service], and the Service reaches storage and caching through the
// [RecordStore] and [StatsCache] interfaces.
//
// # Batch Validation
//
// [Service.ValidateBatch] takes the files of one upload:
//
//  1. The file count is checked against Upload.FilesPerBatch
//  2. A slot is taken from the [UploadLimiter]
//  3. Each file is streamed through the size limit and UTF-8 sanitiser,
//     parsed as CSV and every identifier in its nic column is decoded
//  4. Accepted records are stored file by file; identifiers already
//     stored are counted as duplicates
//  5. An upload history entry with the file's checksum is written
//
// Identifiers that fail to decode are returned as [Rejection] values with
// their line number; they never fail the batch.
//
// # Reporting
//
// [Service.ListRecords] pages through stored records. [Service.DailyStats]
// and [Service.GenderDistribution] serve the dashboard charts and are cached
// when a [StatsCache] is configured. Any batch that inserts records clears
// the cache.
//
// # Error Handling
//
// Errors are mapped to client messages and support codes by [MapError].
package core
