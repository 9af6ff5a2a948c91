// Package laserblob provides deduplicating, content-typed blob storage with
// pluggable byte-storage backends and ordered attachment resolution.
//
// Blobs are immutable content records addressed by a (variant, SHA-1 digest)
// pair: ingesting identical bytes under the same declared content type
// returns the existing blob without a second storage write. The variant
// (generic, image, video, pdf, spreadsheet) is classified from the content
// type at creation and never changes.
//
// Attachments bind blobs to application records under named roles, either
// single-valued or as an ordered collection. SetAttachments carries replace
// semantics: the supplied descriptor list becomes the role's complete
// attachment set, with positions assigned from list order.
//
// The package is storage- and persistence-agnostic: byte storage is behind
// the Storage interface (filesystem, S3-compatible and in-memory backends
// are provided under storage/), rows are behind Repository (in-memory and
// PostgreSQL implementations under repo/).
package laserblob
