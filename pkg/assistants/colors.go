package assistants

import (
	"hash/fnv"
)

// ColorPair is the presentation color assignment for an assistant.
type ColorPair struct {
	Background string `json:"background"`
	Icon       string `json:"icon"`
}

// palette pairs a background with a contrasting icon color. Assignment is a
// pure function of the alias so the same assistant renders identically on
// every page without a persisted color field.
var palette = []ColorPair{
	{Background: "#E8F0FE", Icon: "#1A73E8"},
	{Background: "#E6F4EA", Icon: "#188038"},
	{Background: "#FEF7E0", Icon: "#B06000"},
	{Background: "#FCE8E6", Icon: "#C5221F"},
	{Background: "#F3E8FD", Icon: "#7627BB"},
	{Background: "#E4F7FB", Icon: "#007B83"},
	{Background: "#FDE7F3", Icon: "#B80672"},
	{Background: "#EFEBE9", Icon: "#5D4037"},
}

// ColorsFor derives a stable color pair from the alias.
func ColorsFor(alias string) ColorPair {
	h := fnv.New32a()
	h.Write([]byte(alias))
	return palette[h.Sum32()%uint32(len(palette))]
}
