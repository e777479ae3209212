package knowledge

import (
	"sort"
	"strings"
	"sync"

	"sitescout/internal/logging"
	"sitescout/internal/types"
)

// ref points an index entry back at its owning result. Workflow and element
// ids are only unique within one result, so every entry carries the url.
type ref struct {
	URL string
	ID  string
}

// indexedCommand is one keyword-index entry: the command plus its owner.
type indexedCommand struct {
	URL     string
	Domain  string
	Command types.ActionCommand
}

// Store is the indexed, persisted repository of all investigations. The
// in-memory map is authoritative; SQLite rows and the snapshot file are
// written behind it and failures there never roll back memory.
type Store struct {
	mu sync.RWMutex

	results map[string]*types.InvestigationResult

	domainIndex      map[string][]string              // domain -> workflow categories
	intentIndex      map[string][]ref                 // lowercase name/category -> workflow refs
	elementTypeIndex map[types.ElementType][]ref      // element type -> element refs
	keywordIndex     map[string][]indexedCommand      // verbatim lowercase phrase -> commands
	prereqIndex      map[string][]string              // url/workflow_id -> prerequisites

	persister *persister // nil in pure in-memory mode
}

// NewStore creates an in-memory store with no persistence. Used by tests and
// ephemeral runs.
func NewStore() *Store {
	return &Store{
		results:          make(map[string]*types.InvestigationResult),
		domainIndex:      make(map[string][]string),
		intentIndex:      make(map[string][]ref),
		elementTypeIndex: make(map[types.ElementType][]ref),
		keywordIndex:     make(map[string][]indexedCommand),
		prereqIndex:      make(map[string][]string),
	}
}

// Open creates a store backed by a SQLite database and a snapshot file, and
// restores previously persisted investigations into memory.
func Open(dbPath, cachePath string) (*Store, error) {
	s := NewStore()

	p, err := newPersister(dbPath, cachePath)
	if err != nil {
		return nil, err
	}
	s.persister = p

	restored, err := p.loadAll()
	if err != nil {
		p.close()
		return nil, err
	}
	for _, result := range restored {
		s.results[result.URL] = result
		s.indexResult(result)
	}
	if len(restored) > 0 {
		logging.Info("Restored %d investigations from %s", len(restored), dbPath)
	}

	return s, nil
}

// Close releases the persistence layer.
func (s *Store) Close() error {
	if s.persister != nil {
		return s.persister.close()
	}
	return nil
}

// Store upserts a result and reindexes it. Index entries from a previous
// investigation of the same url are retracted before the new ones are
// appended, so re-investigation does not leave stale ids behind. Persistence
// failures log and return false; in-memory state stays authoritative.
func (s *Store) Store(result *types.InvestigationResult) bool {
	if result == nil || result.URL == "" {
		return false
	}

	s.mu.Lock()
	if prev, ok := s.results[result.URL]; ok {
		s.retractResult(prev)
	}
	s.results[result.URL] = result
	s.indexResult(result)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if s.persister == nil {
		return true
	}

	ok := true
	if err := s.persister.saveRow(result); err != nil {
		logging.Error("Failed to persist investigation for %s: %v", result.URL, err)
		ok = false
	}
	if err := s.persister.writeSnapshot(snapshot); err != nil {
		logging.Error("Failed to write cache snapshot: %v", err)
		ok = false
	}
	return ok
}

// Get returns the current result for a url, or nil.
func (s *Store) Get(url string) *types.InvestigationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.results[url]
}

// indexResult appends a result's entries to all derived indices. Callers
// hold the write lock.
func (s *Store) indexResult(result *types.InvestigationResult) {
	for _, workflow := range result.Workflows {
		s.domainIndex[result.Domain] = append(s.domainIndex[result.Domain], workflow.Category)

		r := ref{URL: result.URL, ID: workflow.WorkflowID}
		s.intentIndex[strings.ToLower(workflow.Name)] = append(s.intentIndex[strings.ToLower(workflow.Name)], r)
		s.intentIndex[strings.ToLower(workflow.Category)] = append(s.intentIndex[strings.ToLower(workflow.Category)], r)

		if len(workflow.Prerequisites) > 0 {
			s.prereqIndex[result.URL+"/"+workflow.WorkflowID] = workflow.Prerequisites
		}
	}

	for _, element := range result.Elements {
		s.elementTypeIndex[element.Type] = append(s.elementTypeIndex[element.Type],
			ref{URL: result.URL, ID: element.ElementID})
	}

	for _, command := range result.Commands {
		phrase := strings.ToLower(command.Command)
		s.keywordIndex[phrase] = append(s.keywordIndex[phrase], indexedCommand{
			URL:     result.URL,
			Domain:  result.Domain,
			Command: command,
		})
	}
}

// retractResult removes a superseded result's entries from all derived
// indices. Callers hold the write lock.
func (s *Store) retractResult(result *types.InvestigationResult) {
	for key, refs := range s.intentIndex {
		s.intentIndex[key] = dropRefs(refs, result.URL)
		if len(s.intentIndex[key]) == 0 {
			delete(s.intentIndex, key)
		}
	}
	for key, refs := range s.elementTypeIndex {
		s.elementTypeIndex[key] = dropRefs(refs, result.URL)
		if len(s.elementTypeIndex[key]) == 0 {
			delete(s.elementTypeIndex, key)
		}
	}
	for phrase, commands := range s.keywordIndex {
		kept := commands[:0]
		for _, c := range commands {
			if c.URL != result.URL {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			delete(s.keywordIndex, phrase)
		} else {
			s.keywordIndex[phrase] = kept
		}
	}
	for _, workflow := range result.Workflows {
		delete(s.prereqIndex, result.URL+"/"+workflow.WorkflowID)
	}
	delete(s.domainIndex, result.Domain)
	// Another url may share the domain; rebuild its category list.
	for _, other := range s.results {
		if other.URL != result.URL && other.Domain == result.Domain {
			for _, w := range other.Workflows {
				s.domainIndex[result.Domain] = append(s.domainIndex[result.Domain], w.Category)
			}
		}
	}
}

func dropRefs(refs []ref, url string) []ref {
	kept := refs[:0]
	for _, r := range refs {
		if r.URL != url {
			kept = append(kept, r)
		}
	}
	return kept
}

// FindWorkflowsByIntent resolves the intent index with a case-insensitive
// exact match, optionally filtered by domain. Misses return an empty slice.
func (s *Store) FindWorkflowsByIntent(intent, domain string) []types.DiscoveredWorkflow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var workflows []types.DiscoveredWorkflow
	for _, r := range s.intentIndex[strings.ToLower(intent)] {
		result, ok := s.results[r.URL]
		if !ok {
			continue
		}
		if domain != "" && result.Domain != domain {
			continue
		}
		if w := findWorkflow(result, r.ID); w != nil {
			workflows = append(workflows, *w)
		}
	}
	return workflows
}

// FindElementsByType resolves the element-type index, optionally filtered by
// domain.
func (s *Store) FindElementsByType(elementType types.ElementType, domain string) []types.DiscoveredElement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var elements []types.DiscoveredElement
	for _, r := range s.elementTypeIndex[elementType] {
		result, ok := s.results[r.URL]
		if !ok {
			continue
		}
		if domain != "" && result.Domain != domain {
			continue
		}
		for i := range result.Elements {
			if result.Elements[i].ElementID == r.ID {
				elements = append(elements, result.Elements[i])
				break
			}
		}
	}
	return elements
}

// GetNaturalLanguageCommands returns all commands belonging to the first
// stored result whose domain matches.
func (s *Store) GetNaturalLanguageCommands(domain string) []types.ActionCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, result := range s.results {
		if result.Domain == domain {
			return append([]types.ActionCommand(nil), result.Commands...)
		}
	}
	return nil
}

// CommandMatch is one ranked natural-language search hit.
type CommandMatch struct {
	Command types.ActionCommand
	URL     string
	Domain  string
}

// SearchByNaturalLanguage matches the query against indexed command phrases:
// a phrase matches when it shares at least one whitespace-delimited token
// with the query. Results are sorted by confidence descending (stable for
// ties) and capped at 10.
func (s *Store) SearchByNaturalLanguage(query, domain string) []CommandMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryTokens := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(query)) {
		queryTokens[t] = true
	}
	if len(queryTokens) == 0 {
		return nil
	}

	phrases := make([]string, 0, len(s.keywordIndex))
	for phrase := range s.keywordIndex {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases) // deterministic tie order across runs

	var matches []CommandMatch
	for _, phrase := range phrases {
		if !sharesToken(phrase, queryTokens) {
			continue
		}
		for _, entry := range s.keywordIndex[phrase] {
			if domain != "" && entry.Domain != domain {
				continue
			}
			matches = append(matches, CommandMatch{
				Command: entry.Command,
				URL:     entry.URL,
				Domain:  entry.Domain,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Command.Confidence > matches[j].Command.Confidence
	})
	if len(matches) > 10 {
		matches = matches[:10]
	}
	return matches
}

func sharesToken(phrase string, queryTokens map[string]bool) bool {
	for _, t := range strings.Fields(phrase) {
		if queryTokens[t] {
			return true
		}
	}
	return false
}

// GetWorkflowExecutionPlan locates the owning result and workflow, decorates
// each step with its referenced element's targeting details, and returns a
// fully resolved plan. Unknown workflows return nil, never an error.
func (s *Store) GetWorkflowExecutionPlan(workflowID, domain string) *types.ExecutionPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, result := range s.results {
		if domain != "" && result.Domain != domain {
			continue
		}
		workflow := findWorkflow(result, workflowID)
		if workflow == nil {
			continue
		}

		plan := &types.ExecutionPlan{
			WorkflowID:        workflow.WorkflowID,
			Name:              workflow.Name,
			Category:          workflow.Category,
			EstimatedSeconds:  workflow.EstimatedSeconds,
			SuccessIndicators: workflow.SuccessIndicators,
			Prerequisites:     s.prereqIndex[result.URL+"/"+workflow.WorkflowID],
		}

		for i, step := range workflow.Steps {
			planStep := types.PlanStep{
				Order:      i + 1,
				ElementID:  step.ElementID,
				Action:     step.Action,
				Parameters: step.Parameters,
			}
			for j := range result.Elements {
				if result.Elements[j].ElementID == step.ElementID {
					el := &result.Elements[j]
					planStep.Selector = el.Selector
					planStep.XPath = el.XPath
					planStep.Text = el.Text
					planStep.Position = el.Position
					break
				}
			}
			planStep.Description = step.Description
			plan.Steps = append(plan.Steps, planStep)
		}

		return plan
	}
	return nil
}

// Statistics summarizes the store's contents and index sizes.
type Statistics struct {
	Investigations int `json:"investigations"`
	Domains        int `json:"domains"`
	Workflows      int `json:"workflows"`
	Elements       int `json:"elements"`
	Commands       int `json:"commands"`
	IntentKeys     int `json:"intent_keys"`
	CommandPhrases int `json:"command_phrases"`
	ElementTypes   int `json:"element_types"`
	DomainKeys     int `json:"domain_keys"`
	PrereqKeys     int `json:"prereq_keys"`
}

// GetStatistics returns counts of investigations, domains, workflows,
// elements, and index sizes.
func (s *Store) GetStatistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Statistics{
		Investigations: len(s.results),
		IntentKeys:     len(s.intentIndex),
		CommandPhrases: len(s.keywordIndex),
		ElementTypes:   len(s.elementTypeIndex),
		DomainKeys:     len(s.domainIndex),
		PrereqKeys:     len(s.prereqIndex),
	}

	domains := make(map[string]bool)
	for _, result := range s.results {
		domains[result.Domain] = true
		stats.Workflows += len(result.Workflows)
		stats.Elements += len(result.Elements)
		stats.Commands += len(result.Commands)
	}
	stats.Domains = len(domains)
	return stats
}

// Healthy reports whether the persistence layer is reachable. A pure
// in-memory store is always healthy.
func (s *Store) Healthy() bool {
	if s.persister == nil {
		return true
	}
	return s.persister.ping() == nil
}

func (s *Store) snapshotLocked() map[string]*types.InvestigationResult {
	out := make(map[string]*types.InvestigationResult, len(s.results))
	for url, result := range s.results {
		out[url] = result
	}
	return out
}

func findWorkflow(result *types.InvestigationResult, workflowID string) *types.DiscoveredWorkflow {
	for i := range result.Workflows {
		if result.Workflows[i].WorkflowID == workflowID {
			return &result.Workflows[i]
		}
	}
	return nil
}
