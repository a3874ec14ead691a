package checks

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCompatibleSubstringMatch(t *testing.T) {
	table := DefaultTypeTable()

	if !table.Compatible("string", "character varying(255)") {
		t.Fatal("character varying(255) 应满足 string")
	}
	if !table.Compatible("integer", "BIGINT") {
		t.Fatal("类型匹配应忽略大小写")
	}
	if !table.Compatible("timestamp", "timestamp with time zone") {
		t.Fatal("timestamptz 应满足 timestamp")
	}
	if table.Compatible("string", "bytea") {
		t.Fatal("bytea 不应满足 string")
	}
	if table.Compatible("geometry", "point") {
		t.Fatal("未知逻辑类型不应匹配任何列类型")
	}
}

func TestLoadTypeTableOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	content := "string:\n  - text\nmoney:\n  - money\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	table, err := LoadTypeTable(path)
	if err != nil {
		t.Fatalf("加载不应报错: %v", err)
	}

	if table.Compatible("string", "varchar(64)") {
		t.Fatal("覆盖后 varchar 不应再满足 string")
	}
	if !table.Compatible("string", "text") {
		t.Fatal("覆盖后 text 应满足 string")
	}
	if !table.Compatible("money", "money") {
		t.Fatal("新增逻辑类型应生效")
	}
	if !table.Compatible("integer", "int4") {
		t.Fatal("未覆盖的类型应保留默认映射")
	}
}

func TestLoadTypeTableMissingFile(t *testing.T) {
	if _, err := LoadTypeTable(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("文件不存在应报错")
	}
}
