package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

func stringList(vals []string) cty.Value {
	if len(vals) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	elems := make([]cty.Value, len(vals))
	for i, v := range vals {
		elems[i] = cty.StringVal(v)
	}
	return cty.ListVal(elems)
}

// Render serializes the configuration as HCL source.
func (c *Config) Render() []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.SetAttributeValue("static_dirs", stringList(c.StaticDirs))
	body.SetAttributeValue("static_filetypes", stringList(c.StaticFiletypes))
	body.AppendNewline()
	body.SetAttributeValue("code_dirs", stringList(c.CodeDirs))
	body.SetAttributeValue("code_filetypes", stringList(c.CodeFiletypes))
	body.AppendNewline()
	body.SetAttributeValue("ignore_dirs", stringList(c.IgnoreDirs))
	body.AppendNewline()
	body.SetAttributeValue("marker", cty.StringVal(c.Marker))
	body.SetAttributeValue("marker_form", cty.StringVal(c.MarkerForm))
	body.SetAttributeValue("hash_function", cty.StringVal(c.HashFunction))
	body.SetAttributeValue("hash_length", cty.NumberIntVal(int64(c.HashLength)))

	for _, rule := range c.Multibust {
		body.AppendNewline()
		block := body.AppendNewBlock("multibust", []string{rule.Placeholder})
		block.Body().SetAttributeValue("values", stringList(rule.Values))
	}

	return f.Bytes()
}

// WriteInitial writes the configuration to path, refusing to clobber an
// existing file.
func WriteInitial(path string, c *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists, refusing to overwrite", path)
	}
	return os.WriteFile(path, c.Render(), 0o644)
}
