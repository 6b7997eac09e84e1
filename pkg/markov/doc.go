/*
Package markov builds order-k character-level Markov models from text and
uses them to generate pseudo-random phrases.

A Learner scans one or more streams into a Table that maps every observed
k-rune context to the runes that followed it. A Generator then walks that
table from a random context, choosing each next rune uniformly from the
followers recorded for the current context.

Two Table backends are provided: PatternTable keeps everything in memory and
SQLTable spills the table to a scratch SQLite database for corpora that do
not fit comfortably in memory.
*/
package markov
