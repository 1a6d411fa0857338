// Package agents answers questions over the ingested documents with a
// supervisor and three workers running on a graph.
//
// The supervisor asks the model which worker runs next:
//
//	supervisor -> retriever  -> supervisor
//	supervisor -> analyst    -> supervisor
//	supervisor -> visualizer -> supervisor
//	supervisor -> FINISH
//
// Its answer is validated before it is followed. Unknown targets finish the
// run, and the visualizer is only reached after the retriever and the analyst
// ran in the same run. Every run has a step budget that the retriever and
// visualizer tool loops draw from as well, so a run that does not settle ends
// with ErrNotConverged instead of looping forever.
//
// Workflow runs a single query against a ConversationState. Session persists
// the state of conversation threads in a store.CheckpointStore.
package agents
