// Package advisory produces LLM-written personal finance advisories that can be trusted to
// only state what the user's own data says.
//
// An advisory request goes through these steps:
//   - Input building: a stored Profile is turned into immutable PlanInputs (net worth, cash
//     flow, goals, debts, plan outputs, derived totals, constraints and the knowledge base
//     references that may be cited). Missing figures are an error, never a default.
//   - Prompt construction: the inputs are rendered into a deterministic prompt enumerating
//     the authorized numbers and citation ids.
//   - Model call: the prompt is completed into a JSON AdvisoryOutput, which is strictly parsed.
//   - Audits: numeric, citation, business rule and compliance checks. An output is accepted
//     only if all of them pass.
//   - Retries: a rejected output is corrected by re-prompting with the rejection reasons,
//     within a bounded budget.
//
// The Pipeline type runs these steps for one request. Service ties it to a ProfileStore and a
// KnowledgeBase.
package advisory
