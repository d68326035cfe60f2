package sshserver

import "strconv"

type rgb struct {
	r int
	g int
	b int
}

type tuiTheme struct {
	PromptFG     rgb
	PromptGtFG   rgb
	EchoFG       rgb
	ErrorFG      rgb
	InfoFG       rgb
	MetaFG       rgb
	SuggestBG    rgb
	SuggestFG    rgb
	SuggestSelBG rgb
	SuggestSelFG rgb
}

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiDim    = "\x1b[2m"
	ansiItalic = "\x1b[3m"
)

var defaultTheme = tuiTheme{
	PromptFG:     rgb{r: 255, g: 91, b: 189},
	PromptGtFG:   rgb{r: 0, g: 229, b: 255},
	EchoFG:       rgb{r: 240, g: 241, b: 255},
	ErrorFG:      rgb{r: 255, g: 107, b: 107},
	InfoFG:       rgb{r: 112, g: 214, b: 255},
	MetaFG:       rgb{r: 154, g: 163, b: 178},
	SuggestBG:    rgb{r: 32, g: 8, b: 56},
	SuggestFG:    rgb{r: 240, g: 241, b: 255},
	SuggestSelBG: rgb{r: 0, g: 229, b: 255},
	SuggestSelFG: rgb{r: 10, g: 13, b: 23},
}

func ansiFgRGB(c rgb) string {
	return "\x1b[38;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}

func ansiBgRGB(c rgb) string {
	return "\x1b[48;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}
