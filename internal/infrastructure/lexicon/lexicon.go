package lexicon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultSynonyms maps colloquial Indonesian legal terms to the statute
// vocabulary they correspond to. A YAML file, when configured, replaces
// entries per term but the remaining defaults stay active.
var defaultSynonyms = map[string][]string{
	"phk":          {"pemutusan hubungan kerja"},
	"pesangon":     {"uang pesangon uang penghargaan masa kerja"},
	"karyawan":     {"pekerja buruh"},
	"gaji":         {"upah"},
	"cerai":        {"perceraian putusnya perkawinan"},
	"warisan":      {"hukum waris pewarisan"},
	"pidana":       {"sanksi pidana ketentuan pidana"},
	"denda":        {"pidana denda sanksi administratif"},
	"pajak":        {"perpajakan wajib pajak"},
	"tanah":        {"hak atas tanah agraria"},
	"sertifikat":   {"sertipikat hak milik"},
	"utang":        {"perikatan kewajiban pembayaran"},
	"perusahaan":   {"badan usaha perseroan terbatas"},
	"kontrak":      {"perjanjian"},
	"data pribadi": {"pelindungan data pribadi"},
	"ite":          {"informasi dan transaksi elektronik"},
}

type lexiconFile struct {
	Synonyms map[string][]string `yaml:"synonyms"`
}

// Load returns the synonym table for query expansion. path may be empty, in
// which case only the built-in defaults are returned.
func Load(path string) (map[string][]string, error) {
	merged := make(map[string][]string, len(defaultSynonyms))
	for term, expansions := range defaultSynonyms {
		merged[term] = expansions
	}
	if path == "" {
		return merged, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}

	var file lexiconFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	for term, expansions := range file.Synonyms {
		if len(expansions) == 0 {
			delete(merged, term)
			continue
		}
		merged[term] = expansions
	}
	return merged, nil
}
