package world

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

// The types below document the world file layout for Schema. Parsing never
// decodes into them.

type schemaResource struct {
	ID  string `json:"id" jsonschema:"required,description=Sheet identifier such as map or obj"`
	Src string `json:"src" jsonschema:"required,description=Relative path or absolute URL of the image"`
}

type schemaObject struct {
	Type  int   `json:"type" jsonschema:"required,description=Object type id in the revision's numbering"`
	Pos   int   `json:"pos" jsonschema:"required,description=x + y*65536 with y counted from the bottom row"`
	Param []any `json:"param" jsonschema:"description=Type specific construction parameters"`
}

type schemaWarp struct {
	ID   int `json:"id" jsonschema:"required"`
	Pos  int `json:"pos" jsonschema:"required"`
	Data int `json:"data" jsonschema:"description=Exit direction; 3 exits to the left"`
}

type schemaBackground struct {
	Z    int    `json:"z"`
	URL  string `json:"url"`
	Loop int    `json:"loop" jsonschema:"description=Repeat count; 0 or less repeats forever in Deluxe"`
}

type schemaLayer struct {
	Z    int     `json:"z"`
	Data [][]any `json:"data" jsonschema:"required,description=Rows of td32 integers or five element records"`
}

type schemaZone struct {
	ID         int                `json:"id" jsonschema:"required"`
	Camera     int                `json:"camera,omitempty" jsonschema:"description=0 horizontal; 2 free roam"`
	Data       [][]any            `json:"data,omitempty" jsonschema:"description=Tile grid of a zone without layers"`
	Layers     []schemaLayer      `json:"layers,omitempty"`
	Obj        []schemaObject     `json:"obj" jsonschema:"required"`
	Warp       []schemaWarp       `json:"warp,omitempty"`
	Background []schemaBackground `json:"background,omitempty"`
}

type schemaLevel struct {
	ID   int          `json:"id" jsonschema:"required"`
	Name string       `json:"name,omitempty"`
	Zone []schemaZone `json:"zone" jsonschema:"required"`
}

type schemaWorld struct {
	Type             string           `json:"type" jsonschema:"enum=game,enum=lobby,enum=jail"`
	Mode             string           `json:"mode,omitempty"`
	Shortname        string           `json:"shortname,omitempty"`
	Longname         string           `json:"longname,omitempty"`
	Assets           string           `json:"assets,omitempty"`
	AudioOverrideURL string           `json:"audioOverrideURL,omitempty"`
	Vertical         any              `json:"vertical,omitempty" jsonschema:"oneof_type=boolean;string,description=Remake vertical scrolling flag"`
	Resource         []schemaResource `json:"resource"`
	Initial          int              `json:"initial"`
	World            []schemaLevel    `json:"world" jsonschema:"required"`
}

// Schema returns a JSON Schema describing the world file layout shared by all
// revisions. Unknown keys are permitted everywhere.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
		AllowAdditionalProperties:  true,
	}
	s := r.ReflectFromType(reflect.TypeOf(schemaWorld{}))
	s.Title = "World"
	s.Description = "Level file shared by the Inferno, Classic, Remake, Legacy and Deluxe revisions."
	return s
}
