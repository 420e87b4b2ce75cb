package findingmgr

import (
	"strings"

	"github.com/outofoffice3/org-guardrails/internal/shared"
)

const UnknownGuardrail = "Unknown"

type FindingMgr interface {
	// add finding
	Add(finding shared.Finding)
	// findings grouped by guardrail then control, in first seen order
	GetGuardrails() []GuardrailGroup
	// number of findings
	Count() int
}

// GuardrailGroup is every finding of one guardrail.
type GuardrailGroup struct {
	Name     string
	Count    int
	Controls []ControlGroup
}

// ControlGroup is every finding of one control within a guardrail.  Account ids and
// resource arns are unique and keep first seen order.
type ControlGroup struct {
	Name         string
	Count        int
	AccountIds   []string
	ResourceArns []string
}

type _FindingMgr struct {
	count      int
	guardrails []*guardrailEntry
	index      map[string]*guardrailEntry
}

type guardrailEntry struct {
	name     string
	count    int
	controls []*controlEntry
	index    map[string]*controlEntry
}

type controlEntry struct {
	name      string
	count     int
	accounts  []string
	arns      []string
	seenAccts map[string]struct{}
	seenArns  map[string]struct{}
}

// create new finding manager
func Init() FindingMgr {
	return &_FindingMgr{
		guardrails: []*guardrailEntry{},
		index:      make(map[string]*guardrailEntry),
	}
}

func (fm *_FindingMgr) Add(finding shared.Finding) {
	fm.count++

	name := strings.TrimSpace(finding.Guardrail)
	if name == "" {
		name = UnknownGuardrail
	}
	guardrail, ok := fm.index[name]
	if !ok {
		guardrail = &guardrailEntry{
			name:  name,
			index: make(map[string]*controlEntry),
		}
		fm.index[name] = guardrail
		fm.guardrails = append(fm.guardrails, guardrail)
	}
	guardrail.count++

	control, ok := guardrail.index[finding.ControlName]
	if !ok {
		control = &controlEntry{
			name:      finding.ControlName,
			seenAccts: make(map[string]struct{}),
			seenArns:  make(map[string]struct{}),
		}
		guardrail.index[finding.ControlName] = control
		guardrail.controls = append(guardrail.controls, control)
	}
	control.count++
	if _, seen := control.seenAccts[finding.AccountId]; !seen && finding.AccountId != "" {
		control.seenAccts[finding.AccountId] = struct{}{}
		control.accounts = append(control.accounts, finding.AccountId)
	}
	if _, seen := control.seenArns[finding.ResourceArn]; !seen && finding.ResourceArn != "" {
		control.seenArns[finding.ResourceArn] = struct{}{}
		control.arns = append(control.arns, finding.ResourceArn)
	}
}

func (fm *_FindingMgr) GetGuardrails() []GuardrailGroup {
	groups := make([]GuardrailGroup, 0, len(fm.guardrails))
	for _, guardrail := range fm.guardrails {
		group := GuardrailGroup{
			Name:     guardrail.name,
			Count:    guardrail.count,
			Controls: make([]ControlGroup, 0, len(guardrail.controls)),
		}
		for _, control := range guardrail.controls {
			group.Controls = append(group.Controls, ControlGroup{
				Name:         control.name,
				Count:        control.count,
				AccountIds:   append([]string{}, control.accounts...),
				ResourceArns: append([]string{}, control.arns...),
			})
		}
		groups = append(groups, group)
	}
	return groups
}

func (fm *_FindingMgr) Count() int {
	return fm.count
}
