package mcpserver

// UsageGuide explains how the document tools compose. Exposed as the
// ansuz://usage resource.
const UsageGuide = `# Ansuz Tool Usage

Documents are identified by their SHA-256 content fingerprint. The same bytes
always map to the same fingerprint, whatever the file was named.

## Typical flow

1. ` + "`list_documents`" + ` to find a document and its fingerprint.
2. ` + "`document_summary`" + ` for the stored one-paragraph digest.
3. ` + "`read_page`" + ` to pull the text of a specific page (1-based).
4. ` + "`ask_document`" + ` to ask a question; the answer uses the summary and the
   chosen page as context and is appended to the document's transcript.
5. ` + "`search_history`" + ` to find earlier exchanges across all documents.

## Adding documents

` + "`ingest_document`" + ` accepts an http(s) URL or a
` + "`data:application/pdf;base64,...`" + ` URI. The file must be a readable PDF;
it is stored under its fingerprint and shows up in ` + "`list_documents`" + `.

## Notes

- Page numbers are 1-based and bounded by the document's page count.
- A page with no extractable text is reported as such, not as an error.
- Transcripts are append-only; asking the same question twice records two
  exchanges.
`
