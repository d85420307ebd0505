// Package manifest builds and parses the imsmanifest.xml document that
// describes a SCORM package.
package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/alnah/go-doc2scorm/internal/resource"
	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// Sentinel errors for manifest operations.
var (
	ErrInvalidDescriptor = errors.New("invalid package descriptor")
	ErrManifestParse     = errors.New("failed to parse manifest")
	ErrManifestScan      = errors.New("failed to scan package resources")
)

// Fixed identifiers inside every generated manifest.
const (
	OrganizationID = "default_org"
	ItemID         = "item_1"
	ResourceID     = "resource_1"
	ResourceType   = "webcontent"
	SCOType        = "sco"
	SchemaName     = "ADL SCORM"
)

const (
	ns12CP    = "http://www.imsproject.org/xsd/imscp_rootv1p1p2"
	ns12ADLCP = "http://www.adlnet.org/xsd/adlcp_rootv1p2"

	ns2004CP     = "http://www.imsglobal.org/xsd/imscp_v1p1"
	ns2004ADLCP  = "http://www.adlnet.org/xsd/adlcp_v1p3"
	ns2004ADLSeq = "http://www.adlnet.org/xsd/adlseq_v1p3"
	ns2004ADLNav = "http://www.adlnet.org/xsd/adlnav_v1p3"
	nsIMSSS      = "http://www.imsglobal.org/xsd/imsss"
	nsXSI        = "http://www.w3.org/2001/XMLSchema-instance"

	schemaLocation12 = ns12CP + " imscp_rootv1p1p2.xsd " +
		ns12ADLCP + " adlcp_rootv1p2.xsd"
	schemaLocation2004 = ns2004CP + " imscp_v1p1.xsd " +
		ns2004ADLCP + " adlcp_v1p3.xsd " +
		ns2004ADLSeq + " adlseq_v1p3.xsd " +
		ns2004ADLNav + " adlnav_v1p3.xsd " +
		nsIMSSS + " imsss_v1p0.xsd"
)

// Descriptor identifies one package.
type Descriptor struct {
	Title     string
	Version   scorm.Version
	CourseID  string
	EntryFile string // defaults to index.html
}

// Identifier returns the manifest identifier derived from the course id.
func (d Descriptor) Identifier() string {
	return "MANIFEST-" + d.CourseID
}

// Validate checks that the descriptor can produce a manifest.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidDescriptor)
	}
	if !d.Version.Valid() {
		return fmt.Errorf("%w: version %q", ErrInvalidDescriptor, d.Version)
	}
	if strings.TrimSpace(d.CourseID) == "" {
		return fmt.Errorf("%w: empty course id", ErrInvalidDescriptor)
	}
	return nil
}

func (d Descriptor) entry() string {
	if d.EntryFile == "" {
		return scorm.EntryFile
	}
	return d.EntryFile
}

// document is the serialized form. Prefixed names are written literally.
type document struct {
	XMLName        xml.Name      `xml:"manifest"`
	Identifier     string        `xml:"identifier,attr"`
	Version        string        `xml:"version,attr"`
	Xmlns          string        `xml:"xmlns,attr"`
	XmlnsADLCP     string        `xml:"xmlns:adlcp,attr"`
	XmlnsADLSeq    string        `xml:"xmlns:adlseq,attr,omitempty"`
	XmlnsADLNav    string        `xml:"xmlns:adlnav,attr,omitempty"`
	XmlnsIMSSS     string        `xml:"xmlns:imsss,attr,omitempty"`
	XmlnsXSI       string        `xml:"xmlns:xsi,attr"`
	SchemaLocation string        `xml:"xsi:schemaLocation,attr"`
	Metadata       metadata      `xml:"metadata"`
	Organizations  organizations `xml:"organizations"`
	Resources      []resourceEl  `xml:"resources>resource"`
}

type metadata struct {
	Schema        string `xml:"schema"`
	SchemaVersion string `xml:"schemaversion"`
}

type organizations struct {
	Default      string       `xml:"default,attr"`
	Organization organization `xml:"organization"`
}

type organization struct {
	Identifier string `xml:"identifier,attr"`
	Title      string `xml:"title"`
	Item       item   `xml:"item"`
}

type item struct {
	Identifier     string         `xml:"identifier,attr"`
	IdentifierRef  string         `xml:"identifierref,attr"`
	IsVisible      string         `xml:"isvisible,attr,omitempty"`
	Title          string         `xml:"title"`
	Prerequisites  *prerequisites `xml:"adlcp:prerequisites"`
	MaxTimeAllowed *string        `xml:"adlcp:maxtimeallowed"`
	TimeLimit      *string        `xml:"adlcp:timelimitaction"`
	DataFromLMS    *string        `xml:"adlcp:datafromlms"`
	MasteryScore   *string        `xml:"adlcp:masteryscore"`
}

type prerequisites struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type resourceEl struct {
	Identifier     string   `xml:"identifier,attr"`
	Type           string   `xml:"type,attr"`
	Href           string   `xml:"href,attr"`
	SCORMTypeLower string   `xml:"adlcp:scormtype,attr,omitempty"`
	SCORMTypeCamel string   `xml:"adlcp:scormType,attr,omitempty"`
	Files          []fileEl `xml:"file"`
}

type fileEl struct {
	Href string `xml:"href,attr"`
}

// Build renders imsmanifest.xml for desc. The file list holds the entry
// file, the runtime script, every tree path under resources/ and, when fsys
// is not nil, every file found under resources/ in fsys that the tree
// does not already list.
func Build(desc Descriptor, tree *resource.Tree, fsys fs.FS) ([]byte, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	files, err := FileList(desc, tree, fsys)
	if err != nil {
		return nil, err
	}

	doc := newDocument(desc)
	res := resourceEl{
		Identifier: ResourceID,
		Type:       ResourceType,
		Href:       desc.entry(),
	}
	if desc.Version == scorm.V12 {
		res.SCORMTypeLower = SCOType
	} else {
		res.SCORMTypeCamel = SCOType
	}
	for _, f := range files {
		res.Files = append(res.Files, fileEl{Href: f})
	}
	doc.Resources = []resourceEl{res}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// FileList returns the de-duplicated file hrefs Build would declare.
func FileList(desc Descriptor, tree *resource.Tree, fsys fs.FS) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	add(desc.entry())
	add(scorm.ShimFile)
	if tree != nil {
		for _, p := range tree.Paths() {
			add(path.Join(scorm.ResourcesDir, p))
		}
	}

	if fsys == nil {
		return files, nil
	}

	err := fs.WalkDir(fsys, scorm.ResourcesDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == scorm.ResourcesDir {
				return fs.SkipDir
			}
			return err
		}
		if d.Type().IsRegular() {
			add(p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestScan, err)
	}
	return files, nil
}

func newDocument(desc Descriptor) *document {
	doc := &document{
		Identifier: desc.Identifier(),
		Version:    "1.0",
		XmlnsXSI:   nsXSI,
		Metadata:   metadata{Schema: SchemaName},
		Organizations: organizations{
			Default: OrganizationID,
			Organization: organization{
				Identifier: OrganizationID,
				Title:      desc.Title,
				Item: item{
					Identifier:    ItemID,
					IdentifierRef: ResourceID,
					Title:         desc.Title,
				},
			},
		},
	}

	if desc.Version == scorm.V12 {
		doc.Xmlns = ns12CP
		doc.XmlnsADLCP = ns12ADLCP
		doc.SchemaLocation = schemaLocation12
		doc.Metadata.SchemaVersion = "1.2"

		// SCORM 1.2 items carry these elements even when empty.
		it := &doc.Organizations.Organization.Item
		it.IsVisible = "true"
		it.Prerequisites = &prerequisites{Type: "aicc_script"}
		it.MaxTimeAllowed = new(string)
		it.TimeLimit = new(string)
		it.DataFromLMS = new(string)
		it.MasteryScore = new(string)
		return doc
	}

	doc.Xmlns = ns2004CP
	doc.XmlnsADLCP = ns2004ADLCP
	doc.XmlnsADLSeq = ns2004ADLSeq
	doc.XmlnsADLNav = ns2004ADLNav
	doc.XmlnsIMSSS = nsIMSSS
	doc.SchemaLocation = schemaLocation2004
	doc.Metadata.SchemaVersion = "2004 4th Edition"
	return doc
}
