package certificate

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/tbxark/civicdesk/record"
	"github.com/tbxark/civicdesk/registry"
)

const (
	header = "GOVERNMENT OF KERALA"
	footer = "NB: This certificate is for demonstration purposes."
	margin = 50.0
)

const registerText = "(Issued under Section 12 of the Registration of Births and Deaths Acts, 1969 and Rule 8 of the Kerala " +
	"Registration of Births and Deaths Rules, 1999) This is to certify that the following information has been " +
	"taken from the original record of %s which is the register for (local area/local body) " +
	"Thiruvananthapuram Corporation of Taluk Thiruvananthapuram of District Thiruvananthapuram of State Kerala."

type line struct {
	label string
	field string
}

type layout struct {
	title     string
	titleY    float64
	paragraph string
	// intro is a single line drawn under the title when there is no paragraph.
	intro   string
	fieldsY float64
	lines   []line
}

var layouts = map[registry.Kind]layout{
	registry.BirthCertificate: {
		title:     "BIRTH CERTIFICATE",
		titleY:    120,
		paragraph: fmt.Sprintf(registerText, "birth"),
		fieldsY:   300,
		lines: []line{
			{"Name", "full_name"},
			{"Father's Name", "fathers_name"},
			{"Mother's Name", "mothers_name"},
			{"Date of Birth", "date_of_birth"},
			{"Place of Birth", "place_of_birth"},
		},
	},
	registry.DeathCertificate: {
		title:     "DEATH CERTIFICATE",
		titleY:    120,
		paragraph: fmt.Sprintf(registerText, "death"),
		fieldsY:   300,
		lines: []line{
			{"Name", "name"},
			{"Date of Death", "date_of_death"},
			{"Place of Death", "place_of_death"},
			{"Cause of Death", "cause_of_death"},
		},
	},
	registry.IncomeCertificate: {
		title:   "INCOME CERTIFICATE",
		titleY:  70,
		intro:   "Certified that the Annual Family Income of the person with the details mentioned below",
		fieldsY: 200,
		lines: []line{
			{"Name", "name"},
			{"Annual Income", "annual_income"},
			{"Source of Income", "source_of_income"},
			{"Address", "address"},
		},
	},
	registry.LandCertificate: {
		title:   "LAND POSSESSION CERTIFICATE",
		titleY:  70,
		fieldsY: 200,
		lines: []line{
			{"Owner Name", "owner_name"},
			{"Property Address", "property_address"},
			{"Market Value", "market_value"},
			{"Area in Sq. Ft", "area_sqft"},
			{"Survey Number", "survey_number"},
		},
	},
}

// Renderer draws single page A4 certificates.
type Renderer struct {
	keyNumber func() int
	compress  bool
}

func NewRenderer() *Renderer {
	return &Renderer{
		keyNumber: func() int { return 100000 + rand.IntN(900000) },
		compress:  true,
	}
}

// FileName is the object name of the certificate of an application.
func FileName(kind registry.Kind, id int64) string {
	return fmt.Sprintf("%scertificate%d.pdf", strings.ReplaceAll(string(kind), " ", ""), id)
}

// Render draws the certificate of kind with values. Missing values print as N/A.
func (r *Renderer) Render(kind registry.Kind, values map[string]any) ([]byte, error) {
	l, ok := layouts[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no certificate layout for %q", registry.ErrUnknownKind, string(kind))
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(margin, margin, margin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width, height := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 10)
	pdf.Text(margin, margin, fmt.Sprintf("KEYNO: %d", r.keyNumber()))
	pdf.SetFont("Helvetica", "B", 14)
	centered(pdf, width, margin, header)

	pdf.SetFont("Helvetica", "B", 16)
	centered(pdf, width, l.titleY, l.title)

	pdf.SetFont("Helvetica", "", 10)
	if l.paragraph != "" {
		pdf.SetXY(margin, 160)
		pdf.MultiCell(width-2*margin, 12, tr(l.paragraph), "", "J", false)
	}
	if l.intro != "" {
		pdf.Text(margin, 140, tr(l.intro))
	}
	for i, ln := range l.lines {
		pdf.Text(margin, l.fieldsY+float64(i)*20, tr(ln.label+": "+valueOf(values, ln.field)))
	}
	pdf.Text(margin, height-margin, footer)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}
	return buf.Bytes(), nil
}

func centered(pdf *fpdf.Fpdf, width, y float64, s string) {
	pdf.Text((width-pdf.GetStringWidth(s))/2, y, s)
}

func valueOf(values map[string]any, field string) string {
	v, ok := values[field]
	if !ok || record.IsEmpty(v) {
		return "N/A"
	}
	return record.FormatValue(v)
}
