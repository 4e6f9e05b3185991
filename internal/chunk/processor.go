package chunk

import (
	"strings"

	"github.com/wfunc/klyra-server/internal/errors"
)

// ProcessedChunk 预处理完成的区块数据
type ProcessedChunk struct {
	Layers     []*ProcessedLayer
	Collisions []CollisionRect
	Tilesets   []Tileset
	NPCSpawns  []NPCSpawn
}

// Process 预处理区块：图层翻转为由底到顶、提取瓦片、生成碰撞矩形和NPC出生点
func Process(data *LDtkData, worldX, worldY float64) (*ProcessedChunk, error) {
	if len(data.Levels) == 0 {
		return nil, errors.New(errors.ErrChunkProcess, "区块不包含关卡")
	}

	level := data.Levels[0]
	result := &ProcessedChunk{
		Layers:     make([]*ProcessedLayer, 0, len(level.LayerInstances)),
		Collisions: make([]CollisionRect, 0),
		Tilesets:   make([]Tileset, 0),
		NPCSpawns:  make([]NPCSpawn, 0),
	}

	// 倒序遍历，渲染顺序由底到顶
	for i := len(level.LayerInstances) - 1; i >= 0; i-- {
		layer := level.LayerInstances[i]

		processed := &ProcessedLayer{
			Identifier:  layer.Identifier,
			Type:        layer.Type,
			GridSize:    layer.GridSize,
			TilesetUID:  layer.TilesetDefUID,
			Opacity:     layer.Opacity,
			Tiles:       make([]Tile, 0, len(layer.GridTiles)+len(layer.AutoLayerTiles)),
			IsRoof:      strings.Contains(strings.ToLower(layer.Identifier), "roof"),
			LayerDefUID: layer.LayerDefUID,
		}

		// 图层定义的doc字段决定是否参与碰撞
		if def := findLayerDef(data, layer.LayerDefUID); def != nil {
			doc := strings.ToLower(def.Doc)
			processed.HasCollision = strings.Contains(doc, "collision") || strings.Contains(doc, "water")
		}

		processed.Tiles = append(processed.Tiles, layer.GridTiles...)
		processed.Tiles = append(processed.Tiles, layer.AutoLayerTiles...)

		// 碰撞矩形以格子中心为锚点
		if processed.HasCollision && len(layer.IntGridCSV) > 0 && layer.CWid > 0 {
			gridSize := float64(layer.GridSize)
			for idx, value := range layer.IntGridCSV {
				if value != 1 {
					continue
				}
				tileX := idx % layer.CWid
				tileY := idx / layer.CWid
				result.Collisions = append(result.Collisions, CollisionRect{
					X:      worldX + float64(tileX)*gridSize + gridSize/2,
					Y:      worldY + float64(tileY)*gridSize + gridSize/2,
					Width:  layer.GridSize,
					Height: layer.GridSize,
				})
			}
		}

		result.Layers = append(result.Layers, processed)
	}

	// 汇总图层引用的图集
	for _, layer := range level.LayerInstances {
		if layer.TilesetDefUID != 0 {
			result.Tilesets = append(result.Tilesets, Tileset{
				UID:        layer.TilesetDefUID,
				Identifier: layer.TilesetRelPath,
			})
		}
	}

	result.NPCSpawns = findNPCSpawns(level, worldX, worldY)

	return result, nil
}

// findLayerDef 按UID查找图层定义
func findLayerDef(data *LDtkData, uid int) *LayerDef {
	for i := range data.Defs.Layers {
		if data.Defs.Layers[i].UID == uid {
			return &data.Defs.Layers[i]
		}
	}
	return nil
}

// npcTypes IntGrid标记值到NPC类型的映射
var npcTypes = map[int]string{
	2: "item_merchant",
	3: "skill_trader",
	4: "banker",
}

// findNPCSpawns 扫描IntGrid图层中的NPC标记
func findNPCSpawns(level Level, worldX, worldY float64) []NPCSpawn {
	spawns := make([]NPCSpawn, 0)

	for _, layer := range level.LayerInstances {
		if layer.Type != "IntGrid" || layer.CWid == 0 {
			continue
		}

		tileSize := float64(layer.GridSize)
		for i, value := range layer.IntGridCSV {
			npcType, ok := npcTypes[value]
			if !ok {
				continue
			}

			gridX := i % layer.CWid
			gridY := i / layer.CWid

			spawns = append(spawns, NPCSpawn{
				Type: npcType,
				X:    worldX + float64(gridX)*tileSize + tileSize/2,
				Y:    worldY + float64(gridY)*tileSize + tileSize/2,
			})
		}
	}

	return spawns
}
