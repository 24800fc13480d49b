// Package nic decodes national identity numbers into demographic records.
//
// Two encodings are in circulation:
//
//   - Legacy (10 characters): YY DDD SSSS C, where YY is the year within the
//     1900s and DDD the day-of-year ordinal.
//   - Modern (13 characters): YYYY DDD SSSSSS, where YYYY is the full year.
//
// The day ordinal carries the holder's gender: female ordinals are offset by
// 500, so 235 is a man born on day 235 and 735 a woman born on the same day.
//
// [Decode] is a pure function. It performs no I/O and does not read the clock;
// callers pass the reference year used for the age calculation. Rejections are
// returned as *[RejectionError] values whose [Reason] lets batch callers
// report why an identifier was skipped without aborting the batch.
package nic
