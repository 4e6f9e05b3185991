package chunk

// LDtk区块文件的字段子集，命名与LDtk导出格式保持一致

// LDtkData 区块文件根对象
type LDtkData struct {
	Levels []Level `json:"levels"`
	Defs   Defs    `json:"defs"`
}

// Defs 定义区
type Defs struct {
	Layers []LayerDef `json:"layers"`
}

// LayerDef 图层定义，doc 字段标注碰撞语义
type LayerDef struct {
	UID int    `json:"uid"`
	Doc string `json:"doc"`
}

// Level 关卡
type Level struct {
	LayerInstances []LayerInstance `json:"layerInstances"`
}

// LayerInstance 图层实例
type LayerInstance struct {
	Identifier     string  `json:"__identifier"`
	Type           string  `json:"__type"`
	GridSize       int     `json:"__gridSize"`
	CWid           int     `json:"__cWid"`
	Opacity        float64 `json:"__opacity"`
	TilesetDefUID  int     `json:"__tilesetDefUid"`
	TilesetRelPath string  `json:"__tilesetRelPath"`
	LayerDefUID    int     `json:"layerDefUid"`
	GridTiles      []Tile  `json:"gridTiles"`
	AutoLayerTiles []Tile  `json:"autoLayerTiles"`
	IntGridCSV     []int   `json:"intGridCsv"`
}

// Tile 单个瓦片
type Tile struct {
	Px  [2]int `json:"px"`
	Src [2]int `json:"src"`
	F   int    `json:"f"`
	T   int    `json:"t"`
}

// ProcessedLayer 预处理后的图层，按渲染顺序由底到顶排列
type ProcessedLayer struct {
	Identifier   string  `json:"identifier"`
	Type         string  `json:"type"`
	GridSize     int     `json:"gridSize"`
	TilesetUID   int     `json:"tilesetUid"`
	Opacity      float64 `json:"opacity"`
	Tiles        []Tile  `json:"tiles"`
	IsRoof       bool    `json:"isRoof"`
	HasCollision bool    `json:"hasCollision"`
	LayerDefUID  int     `json:"layerDefUid"`
}

// CollisionRect 碰撞矩形，坐标为矩形中心
type CollisionRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// Tileset 图层引用的图集
type Tileset struct {
	UID        int    `json:"uid"`
	Identifier string `json:"identifier"`
}

// NPCSpawn NPC出生点，坐标为格子中心
type NPCSpawn struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Job 区块加载任务
type Job struct {
	FilePath string
	ChunkKey string
	ChunkX   int
	ChunkY   int
	WorldX   float64
	WorldY   float64
}

// Result 带标记的管线结果，Err 非空表示该区块加载失败
type Result struct {
	ChunkKey   string            `json:"chunkKey"`
	ChunkX     int               `json:"chunkX"`
	ChunkY     int               `json:"chunkY"`
	Layers     []*ProcessedLayer `json:"processedLayers,omitempty"`
	Collisions []CollisionRect   `json:"collisionMetadata,omitempty"`
	Tilesets   []Tileset         `json:"tilesets,omitempty"`
	NPCSpawns  []NPCSpawn        `json:"npcSpawns,omitempty"`
	Err        error             `json:"-"`
}
