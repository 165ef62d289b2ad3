package cache

import "fmt"

// 键语义：
// - countsKey(docID):  房间在线计数（Hash<userId -> 连接数>）
// - namesKey(docID):   房间内 userId→username 映射（Hash）
// - contentKey(docID): 文档当前内容读缓存（String）
//
// {} 包住 docID 让同一文档的键落在同一个 slot，Lua 脚本跨键操作才安全

const (
	keyCountsFmt  = "presence:room:{docID:%s}"       // Hash<userId -> count>
	keyNamesFmt   = "presence:room:names:{docID:%s}" // Hash<userId -> username>
	keyContentFmt = "doc:content:{docID:%s}"         // String
)

func countsKey(docID string) string  { return fmt.Sprintf(keyCountsFmt, docID) }
func namesKey(docID string) string   { return fmt.Sprintf(keyNamesFmt, docID) }
func contentKey(docID string) string { return fmt.Sprintf(keyContentFmt, docID) }
