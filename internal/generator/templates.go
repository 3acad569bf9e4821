package generator

import (
	"regexp"
	"strings"
	"text/template"
)

// TemplateData holds the values rendered into configuration.nix.
type TemplateData struct {
	Hostname string
	Imports  []string // absolute paths of user modules
}

// nixEscape escapes a string for safe inclusion inside a Nix "..." string literal.
// It handles backslashes, double quotes, and ${} interpolation sequences.
func nixEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "${", "\\${")
	return s
}

var plainPathRegex = regexp.MustCompile(`^(/[a-zA-Z0-9._+-]+)+$`)

// nixPath renders an absolute path as a Nix path expression. Paths outside
// the path-literal grammar are built from a string.
func nixPath(p string) string {
	if plainPathRegex.MatchString(p) && !strings.HasSuffix(p, "/") {
		return p
	}
	return `(/. + "` + nixEscape(p) + `")`
}

const configurationTemplateText = `{ config, lib, pkgs, ... }:
with lib;

{
  boot.isContainer = true;
  networking.hostName = mkDefault "{{.Hostname | nixEscape}}";
  networking.useDHCP = false;
  imports = [
{{- range .Imports}}
    {{. | nixPath}}
{{- end}}
  ];
}
`

// configurationTemplate is the parsed template, initialized at package load time.
var configurationTemplate *template.Template

func init() {
	funcs := template.FuncMap{
		"nixEscape": nixEscape,
		"nixPath":   nixPath,
	}
	configurationTemplate = template.Must(template.New("configuration").Funcs(funcs).Parse(configurationTemplateText))
}
