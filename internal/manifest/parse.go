package manifest

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// Package is the subset of a manifest needed to inspect a package.
type Package struct {
	Identifier    string
	Version       scorm.Version
	SchemaVersion string
	Title         string
	ItemTitle     string
	Resources     []Resource
}

// Resource is one <resource> entry.
type Resource struct {
	Identifier string
	Type       string
	Href       string
	SCORMType  string
	// SCORMTypeAttr is the attribute's local name as written,
	// "scormtype" or "scormType".
	SCORMTypeAttr string
	Files         []string
}

// Files returns the files of every resource in document order.
func (p *Package) Files() []string {
	var out []string
	for _, r := range p.Resources {
		out = append(out, r.Files...)
	}
	return out
}

// Entry returns the launch href of the first resource.
func (p *Package) Entry() string {
	if len(p.Resources) == 0 {
		return ""
	}
	return p.Resources[0].Href
}

type parsedManifest struct {
	XMLName       xml.Name `xml:"manifest"`
	Identifier    string   `xml:"identifier,attr"`
	SchemaVersion string   `xml:"metadata>schemaversion"`
	Organizations struct {
		Organization []struct {
			Title string `xml:"title"`
			Items []struct {
				Title string `xml:"title"`
			} `xml:"item"`
		} `xml:"organization"`
	} `xml:"organizations"`
	Resources []struct {
		Identifier string     `xml:"identifier,attr"`
		Type       string     `xml:"type,attr"`
		Href       string     `xml:"href,attr"`
		Attrs      []xml.Attr `xml:",any,attr"`
		Files      []struct {
			Href string `xml:"href,attr"`
		} `xml:"file"`
	} `xml:"resources>resource"`
}

// Parse reads a SCORM 1.2 or 2004 manifest.
func Parse(r io.Reader) (*Package, error) {
	var pm parsedManifest
	if err := xml.NewDecoder(r).Decode(&pm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestParse, err)
	}

	pkg := &Package{
		Identifier:    pm.Identifier,
		SchemaVersion: pm.SchemaVersion,
	}

	switch pm.XMLName.Space {
	case ns12CP:
		pkg.Version = scorm.V12
	case ns2004CP:
		pkg.Version = scorm.V2004
	default:
		if v, err := scorm.ParseVersion(pm.SchemaVersion); err == nil && pm.SchemaVersion != "" {
			pkg.Version = v
		}
	}

	if len(pm.Organizations.Organization) > 0 {
		org := pm.Organizations.Organization[0]
		pkg.Title = org.Title
		if len(org.Items) > 0 {
			pkg.ItemTitle = org.Items[0].Title
		}
	}

	for _, res := range pm.Resources {
		out := Resource{
			Identifier: res.Identifier,
			Type:       res.Type,
			Href:       res.Href,
		}
		for _, a := range res.Attrs {
			if a.Name.Local == "scormtype" || a.Name.Local == "scormType" {
				out.SCORMType = a.Value
				out.SCORMTypeAttr = a.Name.Local
			}
		}
		for _, f := range res.Files {
			out.Files = append(out.Files, f.Href)
		}
		pkg.Resources = append(pkg.Resources, out)
	}

	return pkg, nil
}
