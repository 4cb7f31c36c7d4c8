package triage

import (
	"strings"

	"triage-assistant/internal/textnorm"
)

// PhraseGroup is a named set of danger phrases. A group fires when any one of
// its phrases occurs in the normalised text.
type PhraseGroup struct {
	Name    string
	Phrases []string
}

// DefaultPhraseGroups lists the danger phrases in normalised French. Every
// keyword of a red knowledge base entry must appear here. Broad phrases are
// preferred over narrow ones.
var DefaultPhraseGroups = []PhraseGroup{
	{Name: "cardiac", Phrases: []string{
		"douleur thoracique", "douleur poitrine", "douleur a la poitrine",
		"douleur dans la poitrine", "oppression thoracique", "serrement dans la poitrine",
		"crise cardiaque", "infarctus", "arret cardiaque", "pas de pouls",
		"massage cardiaque", "douleur au bras gauche",
	}},
	{Name: "respiratory", Phrases: []string{
		"ne respire pas", "ne respire plus", "n'arrive pas a respirer",
		"n'arrive plus a respirer", "etouffe", "suffoque", "difficulte a respirer",
		"levres bleues",
	}},
	{Name: "stroke", Phrases: []string{
		"avc", "accident vasculaire", "paralysie", "visage paralyse", "bouche de travers",
		"difficulte a parler", "trouble de la parole", "faiblesse d'un cote",
		"engourdissement d'un cote",
	}},
	{Name: "bleeding", Phrases: []string{
		"hemorragie", "saigne beaucoup", "saignement abondant", "perd beaucoup de sang",
		"saignement qui ne s'arrete pas",
	}},
	{Name: "anaphylaxis", Phrases: []string{
		"gonflement du visage", "gonflement de la gorge", "gorge gonflee", "langue gonflee",
		"choc anaphylactique", "oedeme de quincke",
	}},
	{Name: "unresponsive", Phrases: []string{
		"inconscient", "perte de connaissance", "ne repond plus", "evanoui",
		"ne se reveille pas",
	}},
	{Name: "seizure", Phrases: []string{
		"convulsion", "crise convulsive", "crise d'epilepsie",
	}},
	{Name: "poisoning", Phrases: []string{
		"overdose", "intoxication", "empoisonnement", "avale des medicaments",
		"produit toxique", "monoxyde de carbone",
	}},
	{Name: "suicidal", Phrases: []string{
		"suicide", "me suicider", "me tuer", "envie de mourir", "en finir avec la vie",
	}},
	{Name: "meningitis", Phrases: []string{
		"raideur de la nuque", "nuque raide", "taches violacees", "purpura",
	}},
	{Name: "burn", Phrases: []string{
		"brulure grave", "brulure etendue", "brule au visage", "brulure chimique",
		"brulure electrique",
	}},
	{Name: "head_trauma", Phrases: []string{
		"traumatisme cranien", "choc a la tete", "coup sur la tete", "vomit apres un choc",
	}},
	{Name: "abdominal", Phrases: []string{
		"ventre dur", "douleur abdominale intense", "vomit du sang", "selles noires",
	}},
	{Name: "hypoglycemia", Phrases: []string{
		"hypoglycemie severe", "diabetique confus", "sucre tres bas",
	}},
	{Name: "pregnancy", Phrases: []string{
		"enceinte et saigne", "saignement pendant la grossesse", "perte des eaux",
		"contractions avant terme",
	}},
}

// Detector finds unambiguous danger phrases. It does no I/O and cannot fail.
type Detector struct {
	groups []PhraseGroup
}

func NewDetector(groups []PhraseGroup) *Detector {
	d := &Detector{groups: make([]PhraseGroup, 0, len(groups))}
	for _, g := range groups {
		phrases := make([]string, 0, len(g.Phrases))
		for _, p := range g.Phrases {
			if p = textnorm.Normalize(p); p != "" {
				phrases = append(phrases, p)
			}
		}
		if len(phrases) == 0 {
			continue
		}
		d.groups = append(d.groups, PhraseGroup{Name: g.Name, Phrases: phrases})
	}
	return d
}

func (d *Detector) Detect(text string) bool {
	normalized := textnorm.Normalize(text)
	for _, g := range d.groups {
		if groupHit(g, normalized) {
			return true
		}
	}
	return false
}

// DetectGroups returns the names of every group found in text, in group order.
func (d *Detector) DetectGroups(text string) []string {
	return d.detectNormalized(textnorm.Normalize(text))
}

func (d *Detector) detectNormalized(normalized string) []string {
	var hits []string
	for _, g := range d.groups {
		if groupHit(g, normalized) {
			hits = append(hits, g.Name)
		}
	}
	return hits
}

// Groups returns a copy of the configured phrase groups after normalisation.
func (d *Detector) Groups() []PhraseGroup {
	out := make([]PhraseGroup, len(d.groups))
	for i, g := range d.groups {
		out[i] = PhraseGroup{Name: g.Name, Phrases: append([]string(nil), g.Phrases...)}
	}
	return out
}

func groupHit(g PhraseGroup, normalized string) bool {
	for _, p := range g.Phrases {
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}
