package driver

// Canonical entities live as :Canonical nodes. Aliases and the attribute map
// are stored as JSON string properties; a merged-away node keeps its UUID and
// carries a MERGED_INTO edge plus a merged_into property pointing at the
// survivor.
const (
	SaveCanonicalQuery = `
		MERGE (n:Canonical {uuid: $uuid})
		SET n.type = $type,
			n.name = $name,
			n.blocking_key = $blocking_key,
			n.aliases = $aliases,
			n.attributes = $attributes,
			n.name_embedding = $name_embedding,
			n.created_at = $created_at,
			n.last_merged_at = $last_merged_at
		RETURN n.uuid AS uuid
	`

	GetCanonicalQuery = `
		MATCH (n:Canonical {uuid: $uuid})
		RETURN n.uuid AS uuid, n.type AS type, n.name AS name,
			n.aliases AS aliases, n.attributes AS attributes,
			n.name_embedding AS name_embedding,
			n.created_at AS created_at, n.last_merged_at AS last_merged_at,
			n.merged_into AS merged_into
	`

	FindByBlockingKeyQuery = `
		MATCH (n:Canonical {type: $type, blocking_key: $blocking_key})
		WHERE n.merged_into IS NULL
		RETURN n.uuid AS uuid, n.type AS type, n.name AS name,
			n.aliases AS aliases, n.attributes AS attributes,
			n.name_embedding AS name_embedding,
			n.created_at AS created_at, n.last_merged_at AS last_merged_at
	`

	MarkMergedIntoQuery = `
		MATCH (loser:Canonical {uuid: $loser_uuid})
		MATCH (winner:Canonical {uuid: $winner_uuid})
		SET loser.merged_into = $winner_uuid
		MERGE (loser)-[e:MERGED_INTO]->(winner)
		SET e.merged_at = $merged_at
		RETURN winner.uuid AS uuid
	`

	ResolveRedirectQuery = `
		MATCH (n:Canonical {uuid: $uuid})
		RETURN n.uuid AS uuid, n.merged_into AS merged_into
	`

	RepointRelationshipsQuery = `
		MATCH (old:Canonical {uuid: $old_uuid})-[r:RELATED]->(other:Canonical)
		MATCH (new:Canonical {uuid: $new_uuid})
		WHERE other.uuid <> $new_uuid
		MERGE (new)-[r2:RELATED {predicate: r.predicate}]->(other)
		SET r2.confidence = r.confidence,
			r2.provenance = r.provenance,
			r2.uuid = r.uuid
		DELETE r
		WITH old, new
		MATCH (other2:Canonical)-[r3:RELATED]->(old)
		WHERE other2.uuid <> $new_uuid
		MERGE (other2)-[r4:RELATED {predicate: r3.predicate}]->(new)
		SET r4.confidence = r3.confidence,
			r4.provenance = r3.provenance,
			r4.uuid = r3.uuid
		DELETE r3
		RETURN old.uuid AS uuid
	`

	SaveRelationshipQuery = `
		MATCH (s:Canonical {uuid: $subject_uuid})
		MATCH (o:Canonical {uuid: $object_uuid})
		MERGE (s)-[r:RELATED {predicate: $predicate}]->(o)
		ON CREATE SET r.uuid = $uuid, r.created_at = $created_at
		SET r.confidence = $confidence,
			r.provenance = $provenance
		RETURN r.uuid AS uuid
	`
)
