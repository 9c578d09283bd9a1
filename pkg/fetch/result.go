package fetch

import "github.com/Sternrassler/ree-datos/pkg/payload"

// FlatResult carries the first series of a response.
type FlatResult struct {
	Valores         []payload.Value `json:"valores"`
	CodComunidad    int             `json:"cod_comunidad"`
	NombreComunidad string          `json:"nombre_comunidad"`
	Anio            int             `json:"anio"`
}

// CategorizedResult carries every series of a response grouped by type.
type CategorizedResult struct {
	Categorias      *payload.Categories `json:"categorias"`
	CodComunidad    int                 `json:"cod_comunidad"`
	NombreComunidad string              `json:"nombre_comunidad"`
	Anio            int                 `json:"anio"`
}
