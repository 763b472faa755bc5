package mcpserver

// ExportFormatContract documents the versioned deck export document, exposed
// as an MCP resource so clients can construct valid import payloads.
const ExportFormatContract = `# Deck Export Format

A deck export is a single JSON document:

` + "```json" + `
{
  "version": "1.0",
  "export_date": "2026-08-30T12:00:00Z",
  "entries": [
    {
      "id": 25,
      "name": "zappet",
      "sprite_url": "https://cdn.critterdex.dev/sprites/25.png",
      "type_tags": ["electric"],
      "date_added": "2026-08-29T09:30:00Z"
    }
  ],
  "stats": { "...": "informational snapshot, ignored on import" }
}
` + "```" + `

## Fields

- ` + "`version`" + ` - format version string. Currently "1.0". Informational;
  import does not reject other values.
- ` + "`export_date`" + ` - RFC 3339 timestamp of when the export was produced.
- ` + "`entries`" + ` - the saved deck entries. Each entry needs a positive
  integer ` + "`id`" + `, a non-empty ` + "`name`" + `, a ` + "`type_tags`" + `
  array (may be empty, must be present) and a ` + "`date_added`" + ` timestamp.
  ` + "`sprite_url`" + ` is optional.
- ` + "`stats`" + ` - snapshot of deck statistics at export time. Ignored by
  import.

## Import semantics

Import replaces the whole deck. Entries that fail structural validation are
skipped individually; the import succeeds as long as at least one entry
survives. A document that yields zero valid entries is rejected and the
existing deck is left untouched. When the document holds more valid entries
than the deck capacity, the surplus is dropped.
`
