package graph

// Cypher statements for every mutation in spec.md §4.C. Each is written as a
// parameterized MERGE/MATCH so repeated application is safe, per spec.md §6.

const addPost = `
MERGE (u:User {did: $did})
MERGE (p:Post {did: $did, rkey: $rkey})
SET p.createdAt = $createdAt, p.isReply = $isReply, p.isImage = $isImage
MERGE (u)-[:POSTED]->(p)`

// addReply connects a reply to its parent post, keyed on rkey alone: the
// classifier only extracts the parent's rkey from the reply's AT-URI (per
// spec.md §4.B), not its author DID, so the parent Post node is matched (or
// provisionally created) by rkey with no did. Because addPost's own MERGE
// keys on (did, rkey), the parent's later add_post call MERGEs a distinct
// node rather than filling this one in — a known duplicate-node gap, not a
// reconciliation.
const addReply = `
MERGE (child:Post {did: $did, rkey: $childRKey})
MERGE (parent:Post {rkey: $parentRKey})
MERGE (child)-[:REPLIED_TO]->(parent)`

const addRepost = `
MERGE (u:User {did: $did})
MERGE (p:Post {rkey: $targetRKey})
MERGE (u)-[r:REPOSTED {rkey: $edgeRKey}]->(p)`

const addLike = `
MERGE (u:User {did: $did})
MERGE (p:Post {rkey: $targetRKey})
MERGE (u)-[r:LIKED {rkey: $edgeRKey}]->(p)`

const addFollow = `
MERGE (src:User {did: $srcDID})
MERGE (dst:User {did: $dstDID})
MERGE (src)-[r:FOLLOWS {rkey: $edgeRKey}]->(dst)`

const addBlock = `
MERGE (blockee:User {did: $blockeeDID})
MERGE (blocker:User {did: $blockerDID})
MERGE (blockee)<-[r:BLOCKS {rkey: $edgeRKey}]-(blocker)`

const addFollowBatch = `
UNWIND $follows AS f
MERGE (src:User {did: f.did})
MERGE (dst:User {did: f.out})
MERGE (src)-[r:FOLLOWS {rkey: f.rkey}]->(dst)`

const addBlockBatch = `
UNWIND $blocks AS b
MERGE (blocker:User {did: b.did})
MERGE (blockee:User {did: b.out})
MERGE (blockee)<-[r:BLOCKS {rkey: b.rkey}]-(blocker)`

const rmPost = `
MATCH (p:Post {did: $did, rkey: $rkey})
DETACH DELETE p`

const rmRepost = `
MATCH (:User {did: $did})-[r:REPOSTED {rkey: $rkey}]->()
DELETE r`

const rmLike = `
MATCH (:User {did: $did})-[r:LIKED {rkey: $rkey}]->()
DELETE r`

const rmFollow = `
MATCH (:User {did: $did})-[r:FOLLOWS {rkey: $rkey}]->()
DELETE r`

const rmBlock = `
MATCH (:User {did: $did})-[r:BLOCKS {rkey: $rkey}]->()
DELETE r`

// purgeOlderThan removes posts older than the horizon and any edges left
// dangling by their removal, in one statement so nothing can interleave a
// partial write.
const purgeOlderThan = `
MATCH (p:Post)
WHERE p.createdAt < $cutoffUS
DETACH DELETE p
RETURN count(p) AS removed`
