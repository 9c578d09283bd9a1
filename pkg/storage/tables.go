package storage

import "github.com/Sternrassler/ree-datos/pkg/fetch"

var (
	// FlatColumns are the columns produced by FlatTable.
	FlatColumns = []string{"cod_comunidad", "nombre_comunidad", "anio", "fecha", "valor", "porcentaje"}

	// CategorizedColumns are the columns produced by CategorizedTable.
	CategorizedColumns = []string{"cod_comunidad", "nombre_comunidad", "anio", "tipo", "titulo", "color", "ultima_actualizacion", "fecha", "valor", "porcentaje"}
)

// FlatTable turns flat results into one row per value. Nil slots are skipped;
// null measurements are stored as NULL.
func FlatTable(name string, results []*fetch.FlatResult) Table {
	t := Table{Name: name, Columns: FlatColumns}
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, v := range r.Valores {
			t.Rows = append(t.Rows, []any{
				r.CodComunidad, r.NombreComunidad, r.Anio,
				v.Datetime, measure(v.Value), measure(v.Percentage),
			})
		}
	}
	return t
}

// CategorizedTable turns categorized results into one row per entry, in
// type order. Nil slots are skipped; empty metadata is stored as NULL.
func CategorizedTable(name string, results []*fetch.CategorizedResult) Table {
	t := Table{Name: name, Columns: CategorizedColumns}
	for _, r := range results {
		if r == nil || r.Categorias == nil {
			continue
		}
		for _, typ := range r.Categorias.Types() {
			entries, _ := r.Categorias.Get(typ)
			for _, e := range entries {
				t.Rows = append(t.Rows, []any{
					r.CodComunidad, r.NombreComunidad, r.Anio,
					typ, nullable(e.Title), nullable(e.Color), nullable(e.LastUpdate),
					e.Fecha, measure(e.Valor), measure(e.Porcentaje),
				})
			}
		}
	}
	return t
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func measure(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
