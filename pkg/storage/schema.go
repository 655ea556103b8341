package storage

import (
	"github.com/Sternrassler/swapi-loader/pkg/swapi"
	"github.com/huandu/go-sqlbuilder"
)

// TableName is the table rows are written to.
const TableName = "swapi_people"

// maxRowsPerStatement keeps multi-row inserts below the 65535 bind parameter limit.
const maxRowsPerStatement = 1000

// columns in insert and select order; names match the db tags of swapi.Row.
var columns = []string{
	"id", "name", "birth_year", "eye_color", "films", "gender", "hair_color",
	"height", "homeworld", "mass", "skin_color", "species", "starships",
	"vehicles", "url", "created", "edited",
}

func dropTableSQL() string {
	return "DROP TABLE IF EXISTS " + TableName
}

func createTableSQL() string {
	ctb := sqlbuilder.PostgreSQL.NewCreateTableBuilder()
	ctb.CreateTable(TableName)
	ctb.Define("id", "INTEGER", "PRIMARY KEY")
	ctb.Define("name", "VARCHAR(100)")
	ctb.Define("birth_year", "VARCHAR(100)")
	ctb.Define("eye_color", "VARCHAR(100)")
	ctb.Define("films", "TEXT")
	ctb.Define("gender", "VARCHAR(100)")
	ctb.Define("hair_color", "VARCHAR(100)")
	ctb.Define("height", "VARCHAR(100)")
	ctb.Define("homeworld", "VARCHAR(100)")
	ctb.Define("mass", "VARCHAR(100)")
	ctb.Define("skin_color", "VARCHAR(100)")
	ctb.Define("species", "TEXT")
	ctb.Define("starships", "TEXT")
	ctb.Define("vehicles", "TEXT")
	ctb.Define("url", "VARCHAR(100)")
	ctb.Define("created", "VARCHAR(100)")
	ctb.Define("edited", "VARCHAR(100)")

	sql, _ := ctb.Build()
	return sql
}

func insertSQL(rows []swapi.Row) (string, []any) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(TableName)
	ib.Cols(columns...)
	for _, r := range rows {
		ib.Values(r.ID, r.Name, r.BirthYear, r.EyeColor, r.Films, r.Gender, r.HairColor,
			r.Height, r.Homeworld, r.Mass, r.SkinColor, r.Species, r.Starships,
			r.Vehicles, r.URL, r.Created, r.Edited)
	}
	return ib.Build()
}

func selectAllSQL() (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(TableName)
	sb.OrderBy("id").Asc()
	return sb.Build()
}

// splitRows cuts rows into statement-sized groups.
func splitRows(rows []swapi.Row, size int) [][]swapi.Row {
	var groups [][]swapi.Row
	for len(rows) > size {
		groups = append(groups, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		groups = append(groups, rows)
	}
	return groups
}
