/*
Package rawsql maps the rows of hand-written SQL queries onto declared models.
You write plain SELECT statements; rawsql resolves the result columns against
the model's fields, builds one instance per row, and keeps every extra column
as an annotation attached to that row.

# Overview

rawsql sits on top of database/sql and works with *sql.DB, *sql.Tx and
*sql.Conn. A raw query is not generated by a query builder, so the result can
carry any column set in any order. rawsql checks it against the model once per
query and then materializes each row with a cached scan plan.

# Models

A model is a struct whose exported fields are described by `db` tags:

	type Book struct {
	    ID     int64  `db:"id,pk"`
	    Title  string `db:"title"`
	    Author int64  `db:"author,fk,ref=author"`  // column author_id
	}

	type Coffee struct {
	    ID    int64  `db:"id"`
	    Brand string `db:"brand,column=name"`      // logical brand, column name
	}

Tag grammar: the first element is the logical field name (defaults to the
lower-cased Go field name). Options are pk (identity field; a field named id
is used when no field is marked), fk (foreign key, column defaults to
name_id), m2m (many-to-many relation, never selected), column=x (physical
column), ref=x (related table) and inline (flatten a nested struct). A field
tagged "-" is skipped. Implement TableNamer to name the model; otherwise the
lower-cased type name is used.

Models only known at runtime can be declared with NewSchema and read into
Record values with RawRecords.

# Mapping rules

  - A result column matches a field by logical name or physical column name,
    case-insensitively, with one level of identifier quoting removed.
  - A translation (column → logical field name) is applied first; a translated
    column matches logical names only. Translations naming unknown columns or
    unknown fields are ignored.
  - Columns that match no field become annotations, in result order, under
    the column name exactly as the driver returned it.
  - Every scalar and foreign-key field, the identity field included, must be
    present; otherwise consuming the result fails with *InsufficientFieldsError.
  - Many-to-many fields are never required and never scanned.

# Laziness

Raw validates the statement immediately (only SELECT is accepted, anything
else yields *InvalidQueryError) but runs nothing. The first call to Len, At,
Rows, All, Annotations or Err executes the query, resolves the columns once,
drains every row and closes the cursor. The outcome, rows or error, is
memoized; later calls never touch the database again.

# Error handling

  - *InvalidQueryError and *InsufficientFieldsError are returned as typed
    errors and also match ErrInvalidQuery / ErrInsufficientFields with errors.Is.
  - Schema declaration problems wrap ErrInvalidModel.
  - Driver errors are returned unmodified.

# Ordinary fetches

Query and Get scan rows without the raw-query checks: extra columns are
dropped and missing columns keep zero values. They share the plan cache with
Raw and are handy as a baseline for comparison.
*/
package rawsql
